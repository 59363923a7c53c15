package dynamo

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// claimedBy reads the payment claim item straight from the table. Returns
// uuid.Nil when the reference was never claimed.
func claimedBy(t *testing.T, ctx context.Context, db *DB, paymentRef string) uuid.UUID {
	t.Helper()

	resp, err := db.dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(db.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: paymentClaimPK(paymentRef)},
			"SK": &types.AttributeValueMemberS{Value: paymentClaimSK(paymentRef)},
		},
	})
	require.NoError(t, err)
	if len(resp.Item) == 0 {
		return uuid.Nil
	}

	var claim paymentClaimDynamo
	require.NoError(t, attributevalue.UnmarshalMap(resp.Item, &claim))
	id, err := uuid.Parse(claim.RegistrationID)
	require.NoError(t, err)
	return id
}

func TestPaymentClaimToDynamo(t *testing.T) {
	regID := uuid.New()
	claim := paymentClaimToDynamo(paymentClaim{
		PaymentReference: "pay_123",
		RegistrationID:   regID,
		ClaimedAt:        baseTime,
	})

	assert.Equal(t, "PAYMENT#pay_123", claim.PK)
	assert.Equal(t, "PAYMENT#pay_123", claim.SK)
	assert.Equal(t, 1, claim.Version)
	assert.Equal(t, regID.String(), claim.RegistrationID)
}
