// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

package dynamodb

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passkeyblog/backend/pkg/identity"
	"github.com/passkeyblog/backend/pkg/passkey"
)

const (
	testUserID       = "3fa85f64-5717-4562-b3fc-2c963f66afa6"
	testCredentialID = "dGVzdC1jcmVkZW50aWFs"
)

// fakeClient satisfies Client with per-call hooks.
type fakeClient struct {
	getItem            func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	query              func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
	transactWriteItems func(*dynamodb.TransactWriteItemsInput) (*dynamodb.TransactWriteItemsOutput, error)
	updateItem         func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
}

func (f *fakeClient) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return f.getItem(params)
}

func (f *fakeClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return f.query(params)
}

func (f *fakeClient) TransactWriteItems(_ context.Context, params *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	return f.transactWriteItems(params)
}

func (f *fakeClient) UpdateItem(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return f.updateItem(params)
}

func newTestStore(t *testing.T, client Client) *Store {
	t.Helper()

	store, err := NewWithClient(&Config{EnvName: "test", Region: "eu-west-1"}, client)
	require.NoError(t, err)
	store.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return store
}

func mustUserID(t *testing.T) identity.UserID {
	t.Helper()

	userID, err := identity.ParseUserID(testUserID)
	require.NoError(t, err)
	return userID
}

func mustUserName(t *testing.T, name string) identity.UserName {
	t.Helper()

	userName, err := identity.ParseUserName(name)
	require.NoError(t, err)
	return userName
}

func userAttributes(userID, userName string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		"userID":    &ddbtypes.AttributeValueMemberS{Value: userID},
		"ID":        &ddbtypes.AttributeValueMemberS{Value: userID},
		"userName":  &ddbtypes.AttributeValueMemberS{Value: userName},
		"createdAt": &ddbtypes.AttributeValueMemberN{Value: "1690000000000"},
		"updatedAt": &ddbtypes.AttributeValueMemberN{Value: "1690000000000"},
	}
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, (&Config{Region: "eu-west-1"}).Validate())
	assert.Error(t, (&Config{EnvName: "dev"}).Validate())
	assert.NoError(t, (&Config{EnvName: "dev", Region: "eu-west-1"}).Validate())
	assert.Equal(t, "dev-User", (&Config{EnvName: "dev"}).TableName())
}

func TestNewWithClient_Invalid(t *testing.T) {
	_, err := NewWithClient(nil, &fakeClient{})
	assert.Error(t, err)

	_, err = NewWithClient(&Config{EnvName: "test", Region: "eu-west-1"}, nil)
	assert.Error(t, err)
}

func TestFindUserIDByUserName(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		var captured *dynamodb.QueryInput
		store := newTestStore(t, &fakeClient{
			query: func(input *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
				captured = input
				return &dynamodb.QueryOutput{
					Items: []map[string]ddbtypes.AttributeValue{userAttributes(testUserID, "alice")},
				}, nil
			},
		})

		userID, err := store.FindUserIDByUserName(context.Background(), mustUserName(t, "alice"))
		require.NoError(t, err)
		assert.Equal(t, testUserID, userID.String())

		require.NotNil(t, captured)
		assert.Equal(t, "test-User", aws.ToString(captured.TableName))
		assert.Equal(t, userNameIndex, aws.ToString(captured.IndexName))
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newTestStore(t, &fakeClient{
			query: func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
				return &dynamodb.QueryOutput{}, nil
			},
		})

		_, err := store.FindUserIDByUserName(context.Background(), mustUserName(t, "alice"))
		assert.True(t, passkey.IsUserNotFound(err))
	})

	t.Run("DuplicateName", func(t *testing.T) {
		store := newTestStore(t, &fakeClient{
			query: func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
				return &dynamodb.QueryOutput{
					Items: []map[string]ddbtypes.AttributeValue{
						userAttributes(testUserID, "alice"),
						userAttributes("7ba7b810-9dad-41d1-80b4-00c04fd430c8", "alice"),
					},
				}, nil
			},
		})

		_, err := store.FindUserIDByUserName(context.Background(), mustUserName(t, "alice"))
		assert.True(t, passkey.IsStoreError(err))
		assert.False(t, passkey.IsUserNotFound(err))
	})

	t.Run("QueryError", func(t *testing.T) {
		store := newTestStore(t, &fakeClient{
			query: func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
				return nil, errors.New("throttled")
			},
		})

		_, err := store.FindUserIDByUserName(context.Background(), mustUserName(t, "alice"))
		assert.True(t, passkey.IsStoreError(err))
	})

	t.Run("CorruptStoredID", func(t *testing.T) {
		store := newTestStore(t, &fakeClient{
			query: func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
				return &dynamodb.QueryOutput{
					Items: []map[string]ddbtypes.AttributeValue{userAttributes("not-a-uuid", "alice")},
				}, nil
			},
		})

		_, err := store.FindUserIDByUserName(context.Background(), mustUserName(t, "alice"))
		assert.True(t, passkey.IsStoreError(err))
	})
}

func TestFindUser(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		var captured *dynamodb.GetItemInput
		store := newTestStore(t, &fakeClient{
			getItem: func(input *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				captured = input
				return &dynamodb.GetItemOutput{Item: userAttributes(testUserID, "alice")}, nil
			},
		})

		user, err := store.FindUser(context.Background(), mustUserID(t))
		require.NoError(t, err)
		assert.Equal(t, testUserID, user.UserID.String())
		assert.Equal(t, "alice", user.UserName.String())
		assert.Equal(t, int64(1690000000000), user.CreatedAt.UnixMilli())

		require.NotNil(t, captured)
		key, ok := captured.Key["ID"].(*ddbtypes.AttributeValueMemberS)
		require.True(t, ok)
		assert.Equal(t, testUserID, key.Value, "user record sort key is the user ID")
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newTestStore(t, &fakeClient{
			getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				return &dynamodb.GetItemOutput{}, nil
			},
		})

		_, err := store.FindUser(context.Background(), mustUserID(t))
		assert.True(t, passkey.IsUserNotFound(err))
	})
}

func TestFindCredential(t *testing.T) {
	publicKey := []byte{0x01, 0x02, 0x03, 0x04}

	credentialAttributes := map[string]ddbtypes.AttributeValue{
		"userID":              &ddbtypes.AttributeValueMemberS{Value: testUserID},
		"ID":                  &ddbtypes.AttributeValueMemberS{Value: testCredentialID},
		"credentialPublicKey": &ddbtypes.AttributeValueMemberS{Value: base64.StdEncoding.EncodeToString(publicKey)},
		"counter":             &ddbtypes.AttributeValueMemberN{Value: "7"},
		"cloneWarning":        &ddbtypes.AttributeValueMemberBOOL{Value: false},
		"transports": &ddbtypes.AttributeValueMemberL{Value: []ddbtypes.AttributeValue{
			&ddbtypes.AttributeValueMemberS{Value: "internal"},
		}},
		"createdAt": &ddbtypes.AttributeValueMemberN{Value: "1690000000000"},
		"updatedAt": &ddbtypes.AttributeValueMemberN{Value: "1690000000000"},
	}

	t.Run("Found", func(t *testing.T) {
		store := newTestStore(t, &fakeClient{
			getItem: func(input *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				return &dynamodb.GetItemOutput{Item: credentialAttributes}, nil
			},
		})

		credential, err := store.FindCredential(context.Background(), mustUserID(t), testCredentialID)
		require.NoError(t, err)
		assert.Equal(t, testCredentialID, credential.CredentialID)
		assert.Equal(t, publicKey, credential.PublicKey)
		assert.Equal(t, uint32(7), credential.SignCount)
		assert.Equal(t, []protocol.AuthenticatorTransport{protocol.Internal}, credential.Transports)
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newTestStore(t, &fakeClient{
			getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				return &dynamodb.GetItemOutput{}, nil
			},
		})

		_, err := store.FindCredential(context.Background(), mustUserID(t), testCredentialID)
		assert.True(t, passkey.IsCredentialNotFound(err))
	})

	t.Run("CorruptPublicKey", func(t *testing.T) {
		corrupt := map[string]ddbtypes.AttributeValue{}
		for k, v := range credentialAttributes {
			corrupt[k] = v
		}
		corrupt["credentialPublicKey"] = &ddbtypes.AttributeValueMemberS{Value: "%%%not-base64%%%"}

		store := newTestStore(t, &fakeClient{
			getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				return &dynamodb.GetItemOutput{Item: corrupt}, nil
			},
		})

		_, err := store.FindCredential(context.Background(), mustUserID(t), testCredentialID)
		assert.True(t, passkey.IsStoreError(err))
	})
}

func TestCreateUserWithCredential(t *testing.T) {
	params := func(t *testing.T) passkey.CreateUserParams {
		return passkey.CreateUserParams{
			UserID:       mustUserID(t),
			UserName:     mustUserName(t, "alice"),
			CredentialID: testCredentialID,
			PublicKey:    []byte{0x01, 0x02},
			SignCount:    0,
			Transports:   []protocol.AuthenticatorTransport{protocol.Internal},
		}
	}

	t.Run("Created", func(t *testing.T) {
		var captured *dynamodb.TransactWriteItemsInput
		store := newTestStore(t, &fakeClient{
			transactWriteItems: func(input *dynamodb.TransactWriteItemsInput) (*dynamodb.TransactWriteItemsOutput, error) {
				captured = input
				return &dynamodb.TransactWriteItemsOutput{}, nil
			},
		})

		require.NoError(t, store.CreateUserWithCredential(context.Background(), params(t)))

		require.NotNil(t, captured)
		require.Len(t, captured.TransactItems, 2)
		for _, item := range captured.TransactItems {
			require.NotNil(t, item.Put)
			assert.Contains(t, aws.ToString(item.Put.ConditionExpression), "attribute_not_exists")
		}

		credential := captured.TransactItems[1].Put.Item
		id, ok := credential["ID"].(*ddbtypes.AttributeValueMemberS)
		require.True(t, ok)
		assert.Equal(t, testCredentialID, id.Value)
	})

	t.Run("ConditionFailed", func(t *testing.T) {
		store := newTestStore(t, &fakeClient{
			transactWriteItems: func(*dynamodb.TransactWriteItemsInput) (*dynamodb.TransactWriteItemsOutput, error) {
				return nil, &ddbtypes.TransactionCanceledException{
					CancellationReasons: []ddbtypes.CancellationReason{
						{Code: aws.String("ConditionalCheckFailed")},
						{Code: aws.String("None")},
					},
				}
			},
		})

		err := store.CreateUserWithCredential(context.Background(), params(t))
		assert.True(t, passkey.IsUserAlreadyExists(err))
	})

	t.Run("OtherCancellation", func(t *testing.T) {
		store := newTestStore(t, &fakeClient{
			transactWriteItems: func(*dynamodb.TransactWriteItemsInput) (*dynamodb.TransactWriteItemsOutput, error) {
				return nil, &ddbtypes.TransactionCanceledException{
					CancellationReasons: []ddbtypes.CancellationReason{
						{Code: aws.String("TransactionConflict")},
						{Code: aws.String("None")},
					},
				}
			},
		})

		err := store.CreateUserWithCredential(context.Background(), params(t))
		assert.False(t, passkey.IsUserAlreadyExists(err))
		assert.True(t, passkey.IsStoreError(err))
	})

	t.Run("WriteError", func(t *testing.T) {
		store := newTestStore(t, &fakeClient{
			transactWriteItems: func(*dynamodb.TransactWriteItemsInput) (*dynamodb.TransactWriteItemsOutput, error) {
				return nil, errors.New("throttled")
			},
		})

		err := store.CreateUserWithCredential(context.Background(), params(t))
		assert.True(t, passkey.IsStoreError(err))
	})
}

func TestUpdateCredentialCounter(t *testing.T) {
	t.Run("Updated", func(t *testing.T) {
		var captured *dynamodb.UpdateItemInput
		store := newTestStore(t, &fakeClient{
			updateItem: func(input *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
				captured = input
				return &dynamodb.UpdateItemOutput{}, nil
			},
		})

		require.NoError(t, store.UpdateCredentialCounter(
			context.Background(), mustUserID(t), testCredentialID, 42, false))

		require.NotNil(t, captured)
		counter, ok := captured.ExpressionAttributeValues[":counter"].(*ddbtypes.AttributeValueMemberN)
		require.True(t, ok)
		assert.Equal(t, "42", counter.Value)
		assert.Equal(t, "counter", captured.ExpressionAttributeNames["#counter"])
	})

	t.Run("CredentialGone", func(t *testing.T) {
		store := newTestStore(t, &fakeClient{
			updateItem: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
				return nil, &ddbtypes.ConditionalCheckFailedException{Message: aws.String("no item")}
			},
		})

		err := store.UpdateCredentialCounter(
			context.Background(), mustUserID(t), testCredentialID, 42, false)
		assert.True(t, passkey.IsCredentialNotFound(err))
	})

	t.Run("UpdateError", func(t *testing.T) {
		store := newTestStore(t, &fakeClient{
			updateItem: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
				return nil, fmt.Errorf("throttled")
			},
		})

		err := store.UpdateCredentialCounter(
			context.Background(), mustUserID(t), testCredentialID, 42, false)
		assert.True(t, passkey.IsStoreError(err))
	})
}
