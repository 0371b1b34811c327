package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		input string
		want  string
		kind  ExprKind
	}{
		{input: "u32", want: "u32", kind: ExprNamed},
		{input: "T::AccountId", want: "AccountId", kind: ExprNamed},
		{input: "<T as Trait>::Balance", want: "Balance", kind: ExprNamed},
		{input: "Vec<u8>", want: "Vec<u8>", kind: ExprVec},
		{input: "Vec<Vec<u8>>", want: "Vec<Vec<u8>>", kind: ExprVec},
		{input: "Option<T::AccountId>", want: "Option<AccountId>", kind: ExprOption},
		{input: "Compact<<T as Trait>::Balance>", want: "Compact<Balance>", kind: ExprCompact},
		{input: "Box<u64>", want: "u64", kind: ExprNamed},
		{input: "(u32, T::Moment)", want: "(u32, Moment)", kind: ExprTuple},
		{input: "()", want: "()", kind: ExprTuple},
		{input: "[u8; 32]", want: "[u8; 32]", kind: ExprArray},
		{input: " ( AssetId , [u8;4] , ) ", want: "(AssetId, [u8; 4])", kind: ExprTuple},
		{input: "BoundedVec<u8, T::StringLimit>", want: "Vec<u8>", kind: ExprVec},
		{input: "WeakBoundedVec<T::AccountId, ConstU32<100>>", want: "Vec<AccountId>", kind: ExprVec},
		{input: "Result<(), DispatchError>", want: "Result<(), DispatchError>", kind: ExprNamed},
		{input: "BTreeMap<T::AccountId, Balance>", want: "BTreeMap<AccountId, Balance>", kind: ExprNamed},
		{input: "HashMap<u8>", want: "HashMap<u8>", kind: ExprNamed},
		{input: "Weird<u8; x>", want: "Weird<u8; x>", kind: ExprNamed},
		{input: "Vec<(u8, Result<u32, Error<T>>)>", want: "Vec<(u8, Result<u32, Error<T>>)>", kind: ExprVec},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expr, err := ParseType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, expr.Kind)
			assert.Equal(t, tt.want, expr.String())
		})
	}
}

func TestParseTypeErrors(t *testing.T) {
	for _, input := range []string{"", "Vec<u8", "(u32", "[u8; x]", "Weird<u8; x", "u32 u64", "<T as Trait"} {
		_, err := ParseType(input)
		assert.Errorf(t, err, "input %q", input)
	}
}
