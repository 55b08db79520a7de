// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

// Package dynamodb implements the passkey.Store contract on a single
// DynamoDB table.
//
// Layout: one table named "{env}-User" with partition key "userID" and
// sort key "ID". The user record uses its own userID as the sort key; each
// credential record uses the credential ID. A global secondary index
// "userNameIndex" on "userName" backs the uniqueness lookup. The
// user-plus-credential create is a single transactional write with
// attribute_not_exists preconditions on both items, so a duplicate
// registration fails as a whole.
package dynamodb

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-webauthn/webauthn/protocol"

	"github.com/passkeyblog/backend/pkg/identity"
	"github.com/passkeyblog/backend/pkg/metrics"
	"github.com/passkeyblog/backend/pkg/passkey"
)

const userNameIndex = "userNameIndex"

// Client is the subset of the DynamoDB API the store uses. It is satisfied
// by *dynamodb.Client and by mocks in tests.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Config configures the DynamoDB store.
type Config struct {
	// EnvName prefixes the table name ("{env}-User").
	EnvName string `yaml:"env_name" json:"env_name"`

	// Region is the AWS region.
	Region string `yaml:"region" json:"region"`

	// AccessKeyID and SecretAccessKey are optional static credentials.
	// When empty the SDK's default credential chain is used.
	AccessKeyID     string `yaml:"access_key" json:"access_key"`
	SecretAccessKey string `yaml:"secret_key" json:"secret_key"`
	SessionToken    string `yaml:"session_token" json:"session_token"`

	// Endpoint overrides the service endpoint, for DynamoDB Local.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.EnvName == "" {
		return fmt.Errorf("env name is required")
	}
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	return nil
}

// TableName returns the environment-scoped table name.
func (c *Config) TableName() string {
	return c.EnvName + "-User"
}

// Store implements passkey.Store on DynamoDB.
type Store struct {
	client Client
	table  string
	now    func() time.Time
}

// New creates a Store with a client built from the AWS default
// configuration chain, honoring the optional static credentials and
// endpoint override.
func New(ctx context.Context, config *Config) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(config.Region))

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(
			config.AccessKeyID,
			config.SecretAccessKey,
			config.SessionToken,
		)
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*dynamodb.Options)
	if config.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
		})
	}

	return NewWithClient(config, dynamodb.NewFromConfig(cfg, clientOpts...))
}

// NewWithClient creates a Store with a custom client. This is primarily
// used for testing with mock clients.
func NewWithClient(config *Config, client Client) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}

	return &Store{
		client: client,
		table:  config.TableName(),
		now:    time.Now,
	}, nil
}

// userItem is the user record's wire shape.
type userItem struct {
	UserID    string `dynamodbav:"userID"`
	ID        string `dynamodbav:"ID"`
	UserName  string `dynamodbav:"userName"`
	CreatedAt int64  `dynamodbav:"createdAt"`
	UpdatedAt int64  `dynamodbav:"updatedAt"`
}

// credentialItem is the credential record's wire shape. The public key is
// stored base64-encoded.
type credentialItem struct {
	UserID              string   `dynamodbav:"userID"`
	ID                  string   `dynamodbav:"ID"`
	CredentialPublicKey string   `dynamodbav:"credentialPublicKey"`
	Counter             uint32   `dynamodbav:"counter"`
	CloneWarning        bool     `dynamodbav:"cloneWarning"`
	Transports          []string `dynamodbav:"transports"`
	CreatedAt           int64    `dynamodbav:"createdAt"`
	UpdatedAt           int64    `dynamodbav:"updatedAt"`
}

// observe records one store operation's duration and outcome.
func observe(operation string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	metrics.RecordStoreOperation(operation, status, time.Since(start).Seconds())
}

func itemKey(partition, sort string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		"userID": &ddbtypes.AttributeValueMemberS{Value: partition},
		"ID":     &ddbtypes.AttributeValueMemberS{Value: sort},
	}
}

// FindUserIDByUserName queries the user name index. Zero matches is
// ErrUserNotFound; more than one match means the uniqueness invariant is
// broken and surfaces as a StoreError.
func (s *Store) FindUserIDByUserName(ctx context.Context, name identity.UserName) (_ identity.UserID, err error) {
	start := time.Now()
	defer func() { observe(metrics.OpFindUserIDByUserName, start, err) }()

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(userNameIndex),
		KeyConditionExpression: aws.String("userName = :userName"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":userName": &ddbtypes.AttributeValueMemberS{Value: name.String()},
		},
	})
	if err != nil {
		return "", passkey.NewStoreError("query user name", err)
	}

	switch len(out.Items) {
	case 0:
		return "", passkey.ErrUserNotFound
	case 1:
		var item userItem
		if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
			return "", passkey.NewStoreError("unmarshal user", err)
		}
		userID, err := identity.ParseUserID(item.UserID)
		if err != nil {
			return "", passkey.NewStoreError("validate stored user", err)
		}
		return userID, nil
	default:
		return "", passkey.NewStoreError("query user name",
			fmt.Errorf("%d records share user name", len(out.Items)))
	}
}

// FindUser retrieves the user record keyed by (userID, userID).
func (s *Store) FindUser(ctx context.Context, userID identity.UserID) (_ *passkey.UserRecord, err error) {
	start := time.Now()
	defer func() { observe(metrics.OpFindUser, start, err) }()

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       itemKey(userID.String(), userID.String()),
	})
	if err != nil {
		return nil, passkey.NewStoreError("get user", err)
	}
	if out.Item == nil {
		return nil, passkey.ErrUserNotFound
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, passkey.NewStoreError("unmarshal user", err)
	}

	storedID, err := identity.ParseUserID(item.UserID)
	if err != nil {
		return nil, passkey.NewStoreError("validate stored user", err)
	}
	storedName, err := identity.ParseUserName(item.UserName)
	if err != nil {
		return nil, passkey.NewStoreError("validate stored user", err)
	}

	return &passkey.UserRecord{
		UserID:    storedID,
		UserName:  storedName,
		CreatedAt: time.UnixMilli(item.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(item.UpdatedAt).UTC(),
	}, nil
}

// FindCredential retrieves the credential record keyed by
// (userID, credentialID).
func (s *Store) FindCredential(ctx context.Context, userID identity.UserID, credentialID string) (_ *passkey.Credential, err error) {
	start := time.Now()
	defer func() { observe(metrics.OpFindCredential, start, err) }()

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       itemKey(userID.String(), credentialID),
	})
	if err != nil {
		return nil, passkey.NewStoreError("get credential", err)
	}
	if out.Item == nil {
		return nil, passkey.ErrCredentialNotFound
	}

	var item credentialItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, passkey.NewStoreError("unmarshal credential", err)
	}

	publicKey, err := base64.StdEncoding.DecodeString(item.CredentialPublicKey)
	if err != nil {
		return nil, passkey.NewStoreError("decode credential public key", err)
	}

	transports := make([]protocol.AuthenticatorTransport, len(item.Transports))
	for i, t := range item.Transports {
		transports[i] = protocol.AuthenticatorTransport(t)
	}

	return &passkey.Credential{
		UserID:       userID,
		CredentialID: item.ID,
		PublicKey:    publicKey,
		SignCount:    item.Counter,
		CloneWarning: item.CloneWarning,
		Transports:   transports,
		CreatedAt:    time.UnixMilli(item.CreatedAt).UTC(),
		UpdatedAt:    time.UnixMilli(item.UpdatedAt).UTC(),
	}, nil
}

// CreateUserWithCredential writes the user record and its first credential
// in one transaction. Both puts carry attribute_not_exists preconditions;
// a cancelled transaction caused by a failed precondition surfaces as
// ErrUserAlreadyExists.
func (s *Store) CreateUserWithCredential(ctx context.Context, params passkey.CreateUserParams) (err error) {
	start := time.Now()
	defer func() { observe(metrics.OpCreateUserWithCredential, start, err) }()

	now := s.now().UnixMilli()

	transports := make([]string, len(params.Transports))
	for i, t := range params.Transports {
		transports[i] = string(t)
	}

	user, err := attributevalue.MarshalMap(userItem{
		UserID:    params.UserID.String(),
		ID:        params.UserID.String(),
		UserName:  params.UserName.String(),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return passkey.NewStoreError("marshal user", err)
	}

	credential, err := attributevalue.MarshalMap(credentialItem{
		UserID:              params.UserID.String(),
		ID:                  params.CredentialID,
		CredentialPublicKey: base64.StdEncoding.EncodeToString(params.PublicKey),
		Counter:             params.SignCount,
		Transports:          transports,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if err != nil {
		return passkey.NewStoreError("marshal credential", err)
	}

	keysFree := aws.String("attribute_not_exists(userID) AND attribute_not_exists(ID)")
	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []ddbtypes.TransactWriteItem{
			{Put: &ddbtypes.Put{
				TableName:           aws.String(s.table),
				Item:                user,
				ConditionExpression: keysFree,
			}},
			{Put: &ddbtypes.Put{
				TableName:           aws.String(s.table),
				Item:                credential,
				ConditionExpression: keysFree,
			}},
		},
	})
	if err != nil {
		if isConditionalCancellation(err) {
			return passkey.ErrUserAlreadyExists
		}
		return passkey.NewStoreError("create user with credential", err)
	}

	return nil
}

// UpdateCredentialCounter advances the stored signature counter after a
// verified authentication.
func (s *Store) UpdateCredentialCounter(ctx context.Context, userID identity.UserID, credentialID string, signCount uint32, cloneWarning bool) (err error) {
	start := time.Now()
	defer func() { observe(metrics.OpUpdateCredentialCounter, start, err) }()

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 itemKey(userID.String(), credentialID),
		ConditionExpression: aws.String("attribute_exists(userID) AND attribute_exists(ID)"),
		// "counter" is a DynamoDB reserved word.
		UpdateExpression: aws.String("SET #counter = :counter, cloneWarning = :cloneWarning, updatedAt = :updatedAt"),
		ExpressionAttributeNames: map[string]string{
			"#counter": "counter",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":counter":      &ddbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", signCount)},
			":cloneWarning": &ddbtypes.AttributeValueMemberBOOL{Value: cloneWarning},
			":updatedAt":    &ddbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", s.now().UnixMilli())},
		},
	})
	if err != nil {
		var conditionFailed *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return passkey.ErrCredentialNotFound
		}
		return passkey.NewStoreError("update credential counter", err)
	}

	return nil
}

// isConditionalCancellation reports whether a transaction was cancelled
// because one of its preconditions failed, as opposed to throttling or any
// other transient cause.
func isConditionalCancellation(err error) bool {
	var cancelled *ddbtypes.TransactionCanceledException
	if !errors.As(err, &cancelled) {
		return false
	}
	for _, reason := range cancelled.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
