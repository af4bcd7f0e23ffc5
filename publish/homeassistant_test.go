package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomeAssistantPublish(t *testing.T) {
	var (
		path string
		auth string
		body []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	ha, err := NewHomeAssistant(HomeAssistantConfig{URL: srv.URL + "/", Token: "secret"})
	require.NoError(t, err)

	err = ha.Publish(context.Background(), Sensor{
		Device:     "mppt_charger_a",
		Key:        "battery_voltage",
		Value:      Number(decimal.New(1336, -2)),
		Attributes: map[string]string{AttrUnit: "V"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/states/sensor.mppt_charger_a_battery_voltage", path)
	assert.Equal(t, "Bearer secret", auth)
	assert.JSONEq(t, `{"state": 13.36, "attributes": {"unit_of_measurement": "V"}}`, string(body))
}

func TestHomeAssistantBoolState(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	ha, err := NewHomeAssistant(HomeAssistantConfig{URL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, ha.Publish(context.Background(), Sensor{Device: "d", Key: "fan", Value: true}))
	assert.Equal(t, true, got["state"])
}

func TestHomeAssistantStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("401: Unauthorized"))
	}))
	defer srv.Close()

	ha, err := NewHomeAssistant(HomeAssistantConfig{URL: srv.URL})
	require.NoError(t, err)

	err = ha.Publish(context.Background(), Sensor{Device: "d", Key: "k", Value: json.Number("1")})
	var pe *PublishError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "sensor.d_k", pe.Entity)
	assert.Equal(t, http.StatusUnauthorized, pe.Status)
	assert.Equal(t, "401: Unauthorized", pe.Body)
}

func TestNewHomeAssistantRequiresURL(t *testing.T) {
	_, err := NewHomeAssistant(HomeAssistantConfig{})
	assert.Error(t, err)
}
