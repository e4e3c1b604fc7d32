package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/otpgate/otpgate/internal/models"
	"github.com/sirupsen/logrus"
)

// DynamoUserDirectory is the read/patch view of the user table consumed by
// the OTP engine. User provisioning happens elsewhere.
type DynamoUserDirectory struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewDynamoUserDirectory(client *dynamodb.Client, tableName string, logger *logrus.Logger) *DynamoUserDirectory {
	return &DynamoUserDirectory{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (d *DynamoUserDirectory) FindOne(ctx context.Context, userID string) (*models.User, error) {
	key := models.User{ID: userID}

	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: key.GetSK()},
		},
	})

	if err != nil {
		d.logger.WithError(err).Error("Failed to get user from DynamoDB")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if result.Item == nil {
		return nil, nil // User not found
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Item, &user); err != nil {
		d.logger.WithError(err).Error("Failed to unmarshal user from DynamoDB")
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	if user.ID == "" {
		user.ID = userID
	}

	return &user, nil
}

// MarkChannelVerified flips the verified flag for the channel the user just
// proved possession of.
func (d *DynamoUserDirectory) MarkChannelVerified(ctx context.Context, userID string, channel models.Channel) error {
	attr := "phone_verified"
	if channel == models.ChannelMail {
		attr = "email_verified"
	}

	key := models.User{ID: userID}

	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: key.GetSK()},
		},
		UpdateExpression: aws.String("SET #flag = :verified, updated_at = :updated_at"),
		ExpressionAttributeNames: map[string]string{
			"#flag": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":verified":   &types.AttributeValueMemberBOOL{Value: true},
			":updated_at": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		},
	})

	if err != nil {
		d.logger.WithError(err).Error("Failed to mark channel verified in DynamoDB")
		return fmt.Errorf("failed to mark channel verified: %w", err)
	}

	return nil
}
