package main

import (
	"encoding/json"
	"testing"

	"github.com/sapl-run/sapl-core/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSubscriptionParsesEachDocument(t *testing.T) {
	sub, err := buildSubscription(`"alice"`, `"read"`, `{"id":"doc1"}`, "null")
	require.NoError(t, err)

	assert.True(t, sub.Subject.Equal(value.Text("alice")))
	assert.True(t, sub.Action.Equal(value.Text("read")))
	assert.False(t, sub.Resource.IsUndefined())
	assert.False(t, sub.Environment.IsUndefined(), "a JSON null environment is kept as Null, not Undefined")
}

func TestBuildSubscriptionRejectsMalformedJSON(t *testing.T) {
	_, err := buildSubscription(`not json`, "null", "null", "null")
	require.Error(t, err)
}

func TestDecodeSubscriptionBodyTreatsMissingFieldsAsUndefinedBeforeDefaulting(t *testing.T) {
	var body subscriptionBody
	require.NoError(t, json.Unmarshal([]byte(`{"subject":"alice","action":"read"}`), &body))

	sub, err := decodeSubscriptionBody(body)
	require.NoError(t, err)

	assert.True(t, sub.Subject.Equal(value.Text("alice")))
	assert.False(t, sub.Environment.IsUndefined())
}

func TestDecodeSubscriptionBodyRejectsMalformedField(t *testing.T) {
	body := subscriptionBody{Subject: json.RawMessage(`{invalid`)}
	_, err := decodeSubscriptionBody(body)
	require.Error(t, err)
}
