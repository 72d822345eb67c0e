package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_JSON(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ts := Timestamp(time.Date(2024, 3, 1, 13, 4, 5, 600, loc))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01T12:04:05.0000006Z"`, string(data))

	var back Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Time().Equal(ts.Time()))
	assert.Equal(t, time.UTC, back.Time().Location())

	require.NoError(t, json.Unmarshal([]byte(`"2024-03-01T12:04:05+02:00"`), &back))
	assert.Equal(t, 10, back.Time().Hour())

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &back))
	assert.Error(t, json.Unmarshal([]byte(`12`), &back))
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]int{"centers": 3})
	resp.RequestID = "req-1"

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, true, raw["success"])
	assert.Equal(t, "req-1", raw["request_id"])
	assert.Equal(t, map[string]interface{}{"centers": float64(3)}, raw["data"])
	assert.NotContains(t, raw, "error")
	assert.NotEmpty(t, raw["timestamp"])
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("STR_001", "endpoint pattern matched nothing")
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	var decoded APIResponse[json.RawMessage]
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.False(t, decoded.Success)
	assert.Empty(t, decoded.Data)
	assert.Equal(t, "STR_001", decoded.Error.Code)
	assert.Equal(t, "endpoint pattern matched nothing", decoded.Error.Message)
}

func TestComponentHealth_JSON(t *testing.T) {
	data, err := json.Marshal(ComponentHealth{Name: "redis", Status: HealthDown, Message: "dial tcp: refused"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"redis","status":"down","latency":0,"message":"dial tcp: refused"}`, string(data))
}
