package oracle

import (
	"encoding/json"
	"fmt"

	"oracleWatch/internal/codec"
	"oracleWatch/internal/registry"
)

const (
	Module       = "OracleModule"
	CreatedEvent = "OracleCreated"
)

// ID identifies an oracle on chain.
type ID uint32

// AccountID is a 32-byte account public key.
type AccountID [32]byte

func (a AccountID) String() string {
	return codec.EncodeHex(a[:])
}

func (a AccountID) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// Created is the payload of OracleModule.OracleCreated.
type Created struct {
	Oracle  ID        `json:"oracle"`
	Creater AccountID `json:"creater"`
}

func (c Created) String() string {
	return fmt.Sprintf("Oracle id: %d, Created by: %s", c.Oracle, c.Creater)
}

// Registrations declares the module's types that the schema alone cannot size.
func Registrations() ([]registry.Registration, error) {
	rule, err := registry.FixedOf[ID]()
	if err != nil {
		return nil, err
	}
	return []registry.Registration{{Name: "OracleId", Rule: rule}}, nil
}
