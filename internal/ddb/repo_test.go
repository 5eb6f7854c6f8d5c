package ddb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kylejryan/field-report-bot/internal/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	puts    []*dynamodb.PutItemInput
	putErr  error
	queries []*dynamodb.QueryInput
	pages   []*dynamodb.QueryOutput
}

func (f *fakeDB) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDB) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	cp := *in
	f.queries = append(f.queries, &cp)
	if len(f.pages) == 0 {
		return &dynamodb.QueryOutput{}, nil
	}
	p := f.pages[0]
	f.pages = f.pages[1:]
	return p, nil
}

func sample(id string) models.Report {
	return models.Report{
		PK:           "DAY#2026-10-15",
		SK:           "REPORT#" + id,
		ReportID:     id,
		OperatorName: "Mario Rossi",
		CustomerName: "Acme Srl",
		Status:       models.StatusCompleted,
		CreatedAt:    time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC),
	}
}

func item(t *testing.T, r models.Report) map[string]types.AttributeValue {
	t.Helper()
	m, err := attributevalue.MarshalMap(r)
	require.NoError(t, err)
	return m
}

func TestAppendRow(t *testing.T) {
	db := &fakeDB{}
	repo := &Repo{DB: db, Table: "reports"}

	require.NoError(t, repo.AppendRow(context.Background(), sample("01J")))
	require.Len(t, db.puts, 1)

	in := db.puts[0]
	assert.Equal(t, "reports", *in.TableName)
	assert.Contains(t, *in.ConditionExpression, "attribute_not_exists(PK)")
	assert.Equal(t, &types.AttributeValueMemberS{Value: "DAY#2026-10-15"}, in.Item["PK"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "Acme Srl"}, in.Item["customer"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "Completato"}, in.Item["status"])
}

func TestAppendRow_Duplicate(t *testing.T) {
	db := &fakeDB{putErr: &types.ConditionalCheckFailedException{}}
	repo := &Repo{DB: db, Table: "reports"}

	err := repo.AppendRow(context.Background(), sample("01J"))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestAppendRow_Errors(t *testing.T) {
	db := &fakeDB{putErr: errors.New("throttled")}
	repo := &Repo{DB: db, Table: "reports"}
	assert.EqualError(t, repo.AppendRow(context.Background(), sample("01J")), "throttled")

	assert.Error(t, repo.AppendRow(context.Background(), models.Report{ReportID: "nokeys"}))
	assert.Len(t, db.puts, 1)
}

func TestListByDay_Pages(t *testing.T) {
	db := &fakeDB{pages: []*dynamodb.QueryOutput{
		{
			Items:            []map[string]types.AttributeValue{item(t, sample("A")), item(t, sample("B"))},
			LastEvaluatedKey: map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "x"}},
		},
		{Items: []map[string]types.AttributeValue{item(t, sample("C"))}},
	}}
	repo := &Repo{DB: db, Table: "reports"}

	got, err := repo.ListByDay(context.Background(), "DAY#2026-10-15", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "C", got[2].ReportID)
	assert.Equal(t, "Acme Srl", got[0].CustomerName)

	require.Len(t, db.queries, 2)
	assert.EqualValues(t, 10, *db.queries[0].Limit)
	assert.EqualValues(t, 8, *db.queries[1].Limit)
	assert.NotNil(t, db.queries[1].ExclusiveStartKey)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "DAY#2026-10-15"}, db.queries[0].ExpressionAttributeValues[":pk"])
}

func TestListByDay_StopsAtLimit(t *testing.T) {
	db := &fakeDB{pages: []*dynamodb.QueryOutput{{
		Items:            []map[string]types.AttributeValue{item(t, sample("A")), item(t, sample("B"))},
		LastEvaluatedKey: map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "x"}},
	}}}
	repo := &Repo{DB: db, Table: "reports"}

	got, err := repo.ListByDay(context.Background(), "DAY#2026-10-15", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Len(t, db.queries, 1)
}
