package auth

import (
	"testing"

	"github.com/tidwall/gjson"

	"github.com/formgrid/interact/internal/event"
)

func TestFilterAllowList(t *testing.T) {
	data := []byte(`{
		"id": "u-123",
		"name": "Dana",
		"email": "dana@example.com",
		"access_token": "eyJhbGciOi...",
		"refresh_token": "def502...",
		"phone": "555-0100"
	}`)

	got := Filter(data, DefaultAllowedFields)

	if gjson.GetBytes(got, "id").String() != "u-123" {
		t.Errorf("id missing from filtered output: %s", got)
	}
	if gjson.GetBytes(got, "email").String() != "dana@example.com" {
		t.Errorf("email missing from filtered output: %s", got)
	}
	for _, field := range []string{"access_token", "refresh_token", "phone"} {
		if gjson.GetBytes(got, field).Exists() {
			t.Errorf("field %q leaked through the filter: %s", field, got)
		}
	}
}

func TestFilterNeverPassesTokenFields(t *testing.T) {
	data := []byte(`{"id": "u-1", "id_token": "xxx", "client_secret": "yyy"}`)

	// Even an allow-list that names credential fields cannot pass them.
	got := Filter(data, []string{"id", "id_token", "client_secret"})

	if gjson.GetBytes(got, "id_token").Exists() || gjson.GetBytes(got, "client_secret").Exists() {
		t.Errorf("token fields leaked despite allow-list: %s", got)
	}
	if gjson.GetBytes(got, "id").String() != "u-1" {
		t.Errorf("plain field should survive: %s", got)
	}
}

func TestFilterMalformedInput(t *testing.T) {
	got := Filter([]byte(`{"id": "u-1"`), DefaultAllowedFields)
	if string(got) != "{}" {
		t.Errorf("Filter(malformed) = %s, want empty object", got)
	}
}

func TestCompletePublishesFiltered(t *testing.T) {
	bus := event.NewBus()
	var payloads []event.AuthPayload
	bus.Subscribe(event.TopicAuthCompleted, func(c event.Change) {
		payloads = append(payloads, c.Payload.(event.AuthPayload))
	})

	a := New(bus, nil)
	a.Complete(Result{
		Provider: "google",
		Success:  true,
		UserData: []byte(`{"id": "u-9", "name": "Kim", "access_token": "zzz"}`),
	})

	if len(payloads) != 1 {
		t.Fatalf("published %d auth events, want 1", len(payloads))
	}
	p := payloads[0]
	if p.Provider != "google" || !p.Success {
		t.Errorf("payload = %+v, want google success", p)
	}
	if gjson.GetBytes(p.UserData, "name").String() != "Kim" {
		t.Errorf("user data lost allowed field: %s", p.UserData)
	}
	if gjson.GetBytes(p.UserData, "access_token").Exists() {
		t.Errorf("token leaked into published payload: %s", p.UserData)
	}
}

func TestCompleteFailureCarriesNoUserData(t *testing.T) {
	bus := event.NewBus()
	var payloads []event.AuthPayload
	bus.Subscribe(event.TopicAuthCompleted, func(c event.Change) {
		payloads = append(payloads, c.Payload.(event.AuthPayload))
	})

	a := New(bus, nil)
	a.Complete(Result{
		Provider: "github",
		Success:  false,
		UserData: []byte(`{"id": "u-9", "error": "denied"}`),
	})

	if len(payloads) != 1 {
		t.Fatalf("published %d auth events, want 1", len(payloads))
	}
	if payloads[0].UserData != nil {
		t.Errorf("failed flow published user data: %s", payloads[0].UserData)
	}
}
