package dynamo

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/google/uuid"
)

// paymentClaim marks a payment reference as used by one registration.
type paymentClaim struct {
	PaymentReference string
	RegistrationID   uuid.UUID
	ClaimedAt        time.Time
}

type paymentClaimDynamo struct {
	PK               string
	SK               string
	Version          int
	PaymentReference string
	RegistrationID   string
	ClaimedAt        time.Time
}

const (
	paymentClaimEntityName = "PAYMENT"
)

func paymentClaimPK(paymentRef string) string {
	return fmt.Sprintf("%s#%s", paymentClaimEntityName, paymentRef)
}

func paymentClaimSK(paymentRef string) string {
	return fmt.Sprintf("%s#%s", paymentClaimEntityName, paymentRef)
}

func paymentClaimToDynamo(claim paymentClaim) paymentClaimDynamo {
	return paymentClaimDynamo{
		PK:               paymentClaimPK(claim.PaymentReference),
		SK:               paymentClaimSK(claim.PaymentReference),
		Version:          1,
		PaymentReference: claim.PaymentReference,
		RegistrationID:   claim.RegistrationID.String(),
		ClaimedAt:        claim.ClaimedAt,
	}
}

func (d *DB) paymentClaimPut(claim paymentClaim) (*types.TransactWriteItem, error) {
	dynamoClaim := paymentClaimToDynamo(claim)
	claimItem, err := attributevalue.MarshalMap(dynamoClaim)
	if err != nil {
		return nil, registration.NewFailedToTranslateToDBModelError("Failed to translate payment claim to dynamo model", err)
	}
	claimExpr := exprMustBuild(expression.NewBuilder().
		WithCondition(newEntityVersionConditional(dynamoClaim.Version)))

	return &types.TransactWriteItem{
		Put: &types.Put{
			TableName:                 aws.String(d.tableName),
			Item:                      claimItem,
			ConditionExpression:       claimExpr.Condition(),
			ExpressionAttributeNames:  claimExpr.Names(),
			ExpressionAttributeValues: claimExpr.Values(),
		},
	}, nil
}
