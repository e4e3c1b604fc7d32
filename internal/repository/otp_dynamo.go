package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/otpgate/otpgate/internal/models"
	"github.com/sirupsen/logrus"
)

// DynamoOTPStore persists OTP records keyed PK=OTP#<user>, SK=CHANNEL#<type>.
// PutItem replaces the whole item, which gives the per-key upsert. The TTL
// attribute only evicts lazily, so expiry is still checked at verification.
type DynamoOTPStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewDynamoOTPStore(client *dynamodb.Client, tableName string, logger *logrus.Logger) *DynamoOTPStore {
	return &DynamoOTPStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (s *DynamoOTPStore) Upsert(ctx context.Context, record models.OTPRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal OTP record: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: record.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: record.GetSK()}
	item["TTL"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", record.ExpiresAt.Unix())}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})

	if err != nil {
		s.logger.WithError(err).Error("Failed to store OTP in DynamoDB")
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	return nil
}

func (s *DynamoOTPStore) FindOne(ctx context.Context, userID string, channel models.Channel) (*models.OTPRecord, error) {
	key := models.OTPRecord{UserID: userID, Channel: channel}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: key.GetSK()},
		},
	})

	if err != nil {
		s.logger.WithError(err).Error("Failed to get OTP from DynamoDB")
		return nil, fmt.Errorf("failed to get OTP: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var record models.OTPRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal OTP record: %w", err)
	}

	return &record, nil
}

func (s *DynamoOTPStore) Delete(ctx context.Context, userID string, channel models.Channel) error {
	key := models.OTPRecord{UserID: userID, Channel: channel}

	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: key.GetSK()},
		},
	})

	if err != nil {
		return fmt.Errorf("failed to delete OTP: %w", err)
	}

	return nil
}
