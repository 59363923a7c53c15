package dynamo

import (
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var listingKeyAttributes = []string{"PK", "SK", "GSI1PK", "GSI1SK"}

// cursorAfter encodes the listing index key of item so the next page starts
// right after it. Cursors travel in query strings, so they use the URL-safe
// alphabet.
func cursorAfter(item map[string]types.AttributeValue) (string, error) {
	key := make(map[string]types.AttributeValue, len(listingKeyAttributes))
	for _, name := range listingKeyAttributes {
		v, ok := item[name]
		if !ok {
			return "", fmt.Errorf("item has no %s attribute", name)
		}
		key[name] = v
	}

	bytesJSON, err := attributevalue.MarshalMapJSON(key)
	if err != nil {
		return "", fmt.Errorf("failed to encode to JSON: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(bytesJSON), nil
}

// parseCursor turns a cursor back into an ExclusiveStartKey. Only keys from
// the registration listing are accepted.
func parseCursor(cursor string) (map[string]types.AttributeValue, error) {
	bytesJSON, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("cursor is not valid base64: %w", err)
	}

	key, err := attributevalue.UnmarshalMapJSON(bytesJSON)
	if err != nil {
		return nil, fmt.Errorf("cursor is not a valid key: %w", err)
	}

	if len(key) != len(listingKeyAttributes) {
		return nil, fmt.Errorf("cursor is not a valid key: want %d attributes, got %d", len(listingKeyAttributes), len(key))
	}
	for _, name := range listingKeyAttributes {
		if _, ok := key[name].(*types.AttributeValueMemberS); !ok {
			return nil, fmt.Errorf("cursor is not a valid key: %s is missing or not a string", name)
		}
	}
	if partition := key["GSI1PK"].(*types.AttributeValueMemberS).Value; partition != registrationEntityName {
		return nil, fmt.Errorf("cursor is not a valid key: belongs to %q", partition)
	}

	return key, nil
}
