package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/google/uuid"
)

var _ registration.Repository = &DB{}

type registrationDynamo struct {
	PK     string
	SK     string
	GSI1PK string
	GSI1SK string

	ID               string
	Version          int
	Name             string
	Email            string
	Phone            string
	Gender           string
	FoodPreference   string
	PaymentStatus    string
	PaymentReference string
	PaymentOrderID   string
	PaidAt           time.Time
	PhotoURL         string
	PhotoUploadedAt  time.Time
	RegisteredAt     time.Time
	AmountValue      int64
	AmountCurrency   string
}

const (
	registrationEntityName = "REGISTRATION"

	// Sortable, fixed width and always UTC.
	registeredAtSortFormat = "2006-01-02T15:04:05.000000000Z"

	maxTransitionAttempts = 3
	dynamoTimeout         = 2 * time.Second
)

func registrationPK(id uuid.UUID) string {
	return fmt.Sprintf("%s#%s", registrationEntityName, id)
}

func registrationSK(id uuid.UUID) string {
	return fmt.Sprintf("%s#%s", registrationEntityName, id)
}

func registrationGSI1SK(registeredAt time.Time, id uuid.UUID) string {
	return fmt.Sprintf("%s#%s#%s", registrationEntityName, registeredAt.UTC().Format(registeredAtSortFormat), id)
}

func registrationToDynamo(reg registration.Registration) registrationDynamo {
	dynReg := registrationDynamo{
		PK:               registrationPK(reg.ID),
		SK:               registrationSK(reg.ID),
		GSI1PK:           registrationEntityName,
		GSI1SK:           registrationGSI1SK(reg.RegisteredAt, reg.ID),
		ID:               reg.ID.String(),
		Version:          reg.Version,
		Name:             reg.Name,
		Email:            reg.Email,
		Phone:            reg.Phone,
		Gender:           reg.Gender.String(),
		FoodPreference:   reg.FoodPreference.String(),
		PaymentStatus:    reg.PaymentStatus.String(),
		PaymentReference: reg.PaymentReference,
		PaymentOrderID:   reg.PaymentOrderID,
		PaidAt:           reg.PaidAt,
		PhotoURL:         reg.PhotoURL,
		PhotoUploadedAt:  reg.PhotoUploadedAt,
		RegisteredAt:     reg.RegisteredAt,
	}
	if reg.Amount != nil {
		dynReg.AmountValue = reg.Amount.Amount()
		dynReg.AmountCurrency = reg.Amount.Currency().Code
	}

	return dynReg
}

func dynamoToRegistration(dynReg registrationDynamo) (registration.Registration, error) {
	id, err := uuid.Parse(dynReg.ID)
	if err != nil {
		return registration.Registration{}, fmt.Errorf("invalid registration id %q: %w", dynReg.ID, err)
	}
	gender, err := registration.ParseGender(dynReg.Gender)
	if err != nil {
		return registration.Registration{}, err
	}
	food, err := registration.ParseFoodPreference(dynReg.FoodPreference)
	if err != nil {
		return registration.Registration{}, err
	}
	status, err := registration.ParsePaymentStatus(dynReg.PaymentStatus)
	if err != nil {
		return registration.Registration{}, err
	}

	return registration.Registration{
		ID:               id,
		Version:          dynReg.Version,
		Name:             dynReg.Name,
		Email:            dynReg.Email,
		Phone:            dynReg.Phone,
		Gender:           gender,
		FoodPreference:   food,
		PaymentStatus:    status,
		PaymentReference: dynReg.PaymentReference,
		PaymentOrderID:   dynReg.PaymentOrderID,
		PaidAt:           dynReg.PaidAt,
		PhotoURL:         dynReg.PhotoURL,
		PhotoUploadedAt:  dynReg.PhotoUploadedAt,
		RegisteredAt:     dynReg.RegisteredAt,
		Amount:           money.New(dynReg.AmountValue, dynReg.AmountCurrency),
	}, nil
}

func (d *DB) CreateRegistration(ctx context.Context, reg registration.Registration) error {
	ctx, cancel := context.WithTimeout(ctx, dynamoTimeout)
	defer cancel()

	dynamoReg := registrationToDynamo(reg)

	regItem, err := attributevalue.MarshalMap(dynamoReg)
	if err != nil {
		return registration.NewFailedToTranslateToDBModelError("Failed to translate registration to dynamo model", err)
	}
	regExpr := exprMustBuild(expression.NewBuilder().
		WithCondition(newEntityVersionConditional(dynamoReg.Version)))

	_, err = d.dynamoClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(d.tableName),
		Item:                      regItem,
		ConditionExpression:       regExpr.Condition(),
		ExpressionAttributeNames:  regExpr.Names(),
		ExpressionAttributeValues: regExpr.Values(),
	})
	if err != nil {
		var condFailedErr *types.ConditionalCheckFailedException
		if errors.As(err, &condFailedErr) {
			return registration.NewRegistrationAlreadyExistsError(fmt.Sprintf("Registration with ID %q already exists", reg.ID), err)
		} else if errors.Is(err, context.DeadlineExceeded) {
			return registration.NewTimeoutError("CreateRegistration timed out")
		}
		return registration.NewFailedToWriteError("Failed to save registration", err)
	}

	return nil
}

func (d *DB) GetRegistration(ctx context.Context, id uuid.UUID) (registration.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, dynamoTimeout)
	defer cancel()

	resp, err := d.dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: registrationPK(id)},
			"SK": &types.AttributeValueMemberS{Value: registrationSK(id)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return registration.Registration{}, registration.NewTimeoutError("GetRegistration timed out")
		}
		return registration.Registration{}, registration.NewFailedToFetchError(fmt.Sprintf("Failed to fetch registration with id %q", id), err)
	}

	if len(resp.Item) == 0 {
		return registration.Registration{}, registration.NewRegistrationDoesNotExistsError(fmt.Sprintf("Registration with id %q not found", id), nil)
	}

	var dynReg registrationDynamo
	err = attributevalue.UnmarshalMap(resp.Item, &dynReg)
	if err != nil {
		return registration.Registration{}, registration.NewFailedToTranslateToDBModelError("Failed to read registration from dynamo", err)
	}

	reg, err := dynamoToRegistration(dynReg)
	if err != nil {
		return registration.Registration{}, registration.NewFailedToTranslateToDBModelError("Failed to read registration from dynamo", err)
	}
	return reg, nil
}

// CompletePayment writes the completed record together with a claim on the
// payment reference, so a reference can only ever complete one registration.
func (d *DB) CompletePayment(ctx context.Context, id uuid.UUID, paymentRef string, orderID string, paidAt time.Time) (registration.Registration, error) {
	return d.applyTransition(ctx, id, "CompletePayment",
		func(reg registration.Registration) (registration.Registration, bool, error) {
			return reg.WithPaymentCompleted(paymentRef, orderID, paidAt)
		},
		func(updated registration.Registration) (*types.TransactWriteItem, error) {
			return d.paymentClaimPut(paymentClaim{
				PaymentReference: paymentRef,
				RegistrationID:   updated.ID,
				ClaimedAt:        paidAt,
			})
		},
	)
}

func (d *DB) FailPayment(ctx context.Context, id uuid.UUID) (registration.Registration, error) {
	return d.applyTransition(ctx, id, "FailPayment",
		func(reg registration.Registration) (registration.Registration, bool, error) {
			return reg.WithPaymentFailed()
		},
		nil,
	)
}

func (d *DB) AttachPhoto(ctx context.Context, id uuid.UUID, photoURL string, uploadedAt time.Time) (registration.Registration, error) {
	return d.applyTransition(ctx, id, "AttachPhoto",
		func(reg registration.Registration) (registration.Registration, bool, error) {
			updated, err := reg.WithPhoto(photoURL, uploadedAt)
			return updated, err == nil, err
		},
		nil,
	)
}

type transitionFunc func(reg registration.Registration) (registration.Registration, bool, error)

type companionItemFunc func(updated registration.Registration) (*types.TransactWriteItem, error)

// applyTransition reads the record, applies the transition and writes it back
// conditioned on the version it read. A version conflict re-reads and tries
// again, so a concurrent writer that already made the same change turns into a
// no-op.
func (d *DB) applyTransition(ctx context.Context, id uuid.UUID, opName string, transition transitionFunc, companion companionItemFunc) (registration.Registration, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		current, err := d.GetRegistration(ctx, id)
		if err != nil {
			return registration.Registration{}, err
		}

		updated, changed, err := transition(current)
		if err != nil {
			return current, err
		}
		if !changed {
			return current, nil
		}
		updated.Version = current.Version + 1

		err = d.writeTransition(ctx, updated, companion)
		if err == nil {
			return updated, nil
		}

		var regErr *registration.Error
		if errors.As(err, &regErr) && regErr.Reason == registration.REASON_VERSION_CONFLICT {
			continue
		}
		return current, err
	}

	return registration.Registration{}, registration.NewVersionConflictError(fmt.Sprintf("%s for registration %q kept conflicting with concurrent writes", opName, id), nil)
}

func (d *DB) writeTransition(ctx context.Context, updated registration.Registration, companion companionItemFunc) error {
	ctx, cancel := context.WithTimeout(ctx, dynamoTimeout)
	defer cancel()

	dynamoReg := registrationToDynamo(updated)
	regItem, err := attributevalue.MarshalMap(dynamoReg)
	if err != nil {
		return registration.NewFailedToTranslateToDBModelError("Failed to translate registration to dynamo model", err)
	}
	regExpr := exprMustBuild(expression.NewBuilder().
		WithCondition(existingEntityVersionConditional(dynamoReg.Version)))

	regPut := &types.Put{
		TableName:                 aws.String(d.tableName),
		Item:                      regItem,
		ConditionExpression:       regExpr.Condition(),
		ExpressionAttributeNames:  regExpr.Names(),
		ExpressionAttributeValues: regExpr.Values(),
	}

	if companion == nil {
		_, err = d.dynamoClient.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                 regPut.TableName,
			Item:                      regPut.Item,
			ConditionExpression:       regPut.ConditionExpression,
			ExpressionAttributeNames:  regPut.ExpressionAttributeNames,
			ExpressionAttributeValues: regPut.ExpressionAttributeValues,
		})
		if err != nil {
			var condFailedErr *types.ConditionalCheckFailedException
			if errors.As(err, &condFailedErr) {
				return registration.NewVersionConflictError("Registration changed while updating", err)
			} else if errors.Is(err, context.DeadlineExceeded) {
				return registration.NewTimeoutError("Registration update timed out")
			}
			return registration.NewFailedToWriteError("Failed to update registration", err)
		}
		return nil
	}

	companionItem, err := companion(updated)
	if err != nil {
		return err
	}

	_, err = d.dynamoClient.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: regPut},
			*companionItem,
		},
	})
	if err != nil {
		var transactionFailedErr *types.TransactionCanceledException
		if errors.As(err, &transactionFailedErr) {
			// The registration put comes first. A stale version there means another
			// writer got in, which may well have recorded this same payment.
			reasons := transactionFailedErr.CancellationReasons
			if len(reasons) > 0 && isRetryableCancellation(reasons[0]) {
				return registration.NewVersionConflictError("Registration changed while updating", err)
			}
			if len(reasons) > 1 && isRetryableCancellation(reasons[1]) {
				return registration.NewPaymentAlreadyRecordedError(updated.PaymentReference)
			}
			return registration.NewFailedToWriteError("Transaction cancelled", err)
		}
		var transactionConflictErr *types.TransactionConflictException
		if errors.As(err, &transactionConflictErr) {
			return registration.NewVersionConflictError("Registration changed while updating", err)
		} else if errors.Is(err, context.DeadlineExceeded) {
			return registration.NewTimeoutError("Registration update timed out")
		}
		return registration.NewFailedToWriteError("Failed TransactWriteItems call", err)
	}

	return nil
}

func isRetryableCancellation(reason types.CancellationReason) bool {
	switch aws.ToString(reason.Code) {
	case "ConditionalCheckFailed", "TransactionConflict":
		return true
	default:
		return false
	}
}

func (d *DB) ListRegistrations(ctx context.Context, limit int32, cursor *string) (registration.ListRegistrationsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, dynamoTimeout)
	defer cancel()

	keyCond := expression.Key("GSI1PK").Equal(expression.Value(registrationEntityName)).
		And(expression.Key("GSI1SK").BeginsWith(registrationEntityName))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build dynamo key expression: %s", err))
	}

	var startKey map[string]types.AttributeValue
	if cursor != nil {
		startKey, err = parseCursor(*cursor)
		if err != nil {
			return registration.ListRegistrationsResponse{}, registration.NewInvalidCursorError("Invalid cursor", err)
		}
	}

	result, err := d.dynamoClient.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(d.tableName),
		IndexName:                 aws.String(gsi1),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		// Fetch 1 more than limit to check if there is another page or not
		Limit:             aws.Int32(limit + 1),
		ExclusiveStartKey: startKey,
		ScanIndexForward:  aws.Bool(false),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return registration.ListRegistrationsResponse{}, registration.NewTimeoutError("ListRegistrations timed out")
		}
		return registration.ListRegistrationsResponse{}, registration.NewFailedToFetchError("Failed to fetch registrations from dynamo", err)
	}

	var dynamoItems []registrationDynamo
	err = attributevalue.UnmarshalListOfMaps(result.Items, &dynamoItems)
	if err != nil {
		return registration.ListRegistrationsResponse{}, registration.NewFailedToTranslateToDBModelError("Failed to read registrations from dynamo", err)
	}

	regs := make([]registration.Registration, 0, len(dynamoItems))
	for _, item := range dynamoItems {
		reg, err := dynamoToRegistration(item)
		if err != nil {
			return registration.ListRegistrationsResponse{}, registration.NewFailedToTranslateToDBModelError("Failed to read registrations from dynamo", err)
		}
		regs = append(regs, reg)
	}

	hasNextPage := len(regs) > int(limit)

	var newCursor *string
	if hasNextPage && len(result.LastEvaluatedKey) > 0 {
		// Can't use LastEvalKey directly because we grabbed an extra item to check for next page
		lastItemGivenToUser := result.Items[len(result.Items)-2]
		c, err := cursorAfter(lastItemGivenToUser)
		if err != nil {
			panic(fmt.Sprintf("failed to make cursor from lastEvalKey: %s", err))
		}
		newCursor = &c
	}

	return registration.ListRegistrationsResponse{
		Data:        regs[:min(int(limit), len(regs))],
		Cursor:      newCursor,
		HasNextPage: hasNextPage,
	}, nil
}
