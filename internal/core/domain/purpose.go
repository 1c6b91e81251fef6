package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Intent metadata keys.
const (
	MetaAccountID = "account_id"
	MetaPurpose   = "purpose"
	MetaPurchase  = "purchase"
)

// PurposeKind is the wire name of a purpose.
type PurposeKind string

const (
	PurposeRefill   PurposeKind = "refill"
	PurposePurchase PurposeKind = "purchase"
)

// ErrInvalidMetadata is returned when intent metadata cannot be decoded.
var ErrInvalidMetadata = errors.New("invalid intent metadata")

// Purpose is what a payment is for. It is decided when the intent is
// created and is one of Refill or Purchase.
type Purpose interface {
	Kind() PurposeKind
	isPurpose()
}

// Refill tops up the payer's wallet with the captured amount.
type Refill struct{}

func (Refill) Kind() PurposeKind { return PurposeRefill }
func (Refill) isPurpose()        {}

// Purchase creates an order for the carried details.
type Purchase struct {
	Details OrderDetails
}

func (Purchase) Kind() PurposeKind { return PurposePurchase }
func (Purchase) isPurpose()        {}

// EncodeMetadata renders the account and purpose into intent metadata.
func EncodeMetadata(accountID string, p Purpose) (map[string]string, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("%w: empty account id", ErrInvalidMetadata)
	}
	meta := map[string]string{
		MetaAccountID: accountID,
	}
	switch v := p.(type) {
	case Refill:
		meta[MetaPurpose] = string(PurposeRefill)
	case Purchase:
		raw, err := json.Marshal(v.Details)
		if err != nil {
			return nil, fmt.Errorf("encoding purchase details: %w", err)
		}
		meta[MetaPurpose] = string(PurposePurchase)
		meta[MetaPurchase] = string(raw)
	default:
		return nil, fmt.Errorf("%w: unsupported purpose %T", ErrInvalidMetadata, p)
	}
	return meta, nil
}

// DecodeMetadata is the inverse of EncodeMetadata. A missing or unknown
// purpose is an error; the purpose is never guessed from other keys.
func DecodeMetadata(meta map[string]string) (string, Purpose, error) {
	accountID := strings.TrimSpace(meta[MetaAccountID])
	if accountID == "" {
		return "", nil, fmt.Errorf("%w: missing %s", ErrInvalidMetadata, MetaAccountID)
	}

	switch PurposeKind(meta[MetaPurpose]) {
	case PurposeRefill:
		return accountID, Refill{}, nil
	case PurposePurchase:
		raw, ok := meta[MetaPurchase]
		if !ok || raw == "" {
			return accountID, Purchase{}, nil
		}
		var details OrderDetails
		if err := json.Unmarshal([]byte(raw), &details); err != nil {
			return "", nil, fmt.Errorf("%w: purchase details: %v", ErrInvalidMetadata, err)
		}
		return accountID, Purchase{Details: details}, nil
	case "":
		return "", nil, fmt.Errorf("%w: missing %s", ErrInvalidMetadata, MetaPurpose)
	default:
		return "", nil, fmt.Errorf("%w: unknown purpose %q", ErrInvalidMetadata, meta[MetaPurpose])
	}
}
