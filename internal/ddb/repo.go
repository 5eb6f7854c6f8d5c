// Package ddb stores report rows in DynamoDB, one partition per calendar day.
package ddb

import (
	"context"
	"errors"
	"fmt"

	"github.com/kylejryan/field-report-bot/internal/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrDuplicate is returned when a report with the same keys already exists.
var ErrDuplicate = errors.New("report already stored")

// API is the subset of *dynamodb.Client used by Repo.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Repo wraps a DynamoDB client and table name for report operations.
type Repo struct {
	DB    API
	Table string
}

// AppendRow inserts r, refusing to overwrite an existing item.
func (r *Repo) AppendRow(ctx context.Context, rep models.Report) error {
	if rep.PK == "" || rep.SK == "" {
		return fmt.Errorf("ddb: report %q has no keys", rep.ReportID)
	}
	item, err := attributevalue.MarshalMap(rep)
	if err != nil {
		return err
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.Table,
		Item:                item,
		ConditionExpression: awsStr("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w: %s", ErrDuplicate, rep.ReportID)
	}
	return err
}

// ListByDay returns the reports stored under pk (see report.DayKey), oldest
// first, at most limit items.
func (r *Repo) ListByDay(ctx context.Context, pk string, limit int32) ([]models.Report, error) {
	in := &dynamodb.QueryInput{
		TableName:              &r.Table,
		KeyConditionExpression: awsStr("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
			":sk": &types.AttributeValueMemberS{Value: "REPORT#"},
		},
	}
	var out []models.Report
	for {
		if limit > 0 {
			remaining := limit - int32(len(out))
			in.Limit = &remaining
		}
		res, err := r.DB.Query(ctx, in)
		if err != nil {
			return nil, err
		}
		var page []models.Report
		if err := attributevalue.UnmarshalListOfMaps(res.Items, &page); err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(res.LastEvaluatedKey) == 0 || (limit > 0 && int32(len(out)) >= limit) {
			return out, nil
		}
		in.ExclusiveStartKey = res.LastEvaluatedKey
	}
}

// awsStr is a helper to get a pointer to a string literal.
func awsStr(s string) *string { return &s }
