package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/hitoshi/remindo/internal/model"
)

func mustObject(t *testing.T, body string) jsonObject {
	t.Helper()
	var obj jsonObject
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		t.Fatalf("invalid test body: %v", err)
	}
	return obj
}

func TestItemPatchFromJSON_KeyPresence(t *testing.T) {
	p, err := itemPatchFromJSON(mustObject(t, `{"title":"x","details":null}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Title.HasValue() || p.Title.Value != "x" {
		t.Errorf("Title = %+v", p.Title)
	}
	if !p.Details.Set || !p.Details.Null {
		t.Errorf("Details = %+v, want explicit null", p.Details)
	}
	if p.Tags.Set || p.Completed.Set || p.Deadline.Set {
		t.Error("absent keys must stay unset")
	}
}

func TestItemPatchFromJSON_DatetimeAlias(t *testing.T) {
	p, _ := itemPatchFromJSON(mustObject(t, `{"scheduledAt":"2030-01-01"}`))
	if p.Datetime.Value != "2030-01-01" {
		t.Errorf("Datetime = %+v, want scheduledAt value", p.Datetime)
	}

	p, _ = itemPatchFromJSON(mustObject(t, `{"datetime":"2031-01-01","scheduledAt":"2030-01-01"}`))
	if p.Datetime.Value != "2031-01-01" {
		t.Errorf("Datetime = %+v, datetime should win", p.Datetime)
	}
}

func TestJSONObject_OptTags(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"comma string", `{"tags":" A, b ,a,, "}`, []string{"a", "b"}},
		{"list", `{"tags":["Work","work"," Home "]}`, []string{"work", "home"}},
		{"empty list", `{"tags":[]}`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mustObject(t, tt.body).optTags("tags")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.HasValue() || !slices.Equal(got.Value, tt.want) {
				t.Errorf("tags = %+v, want %v", got, tt.want)
			}
		})
	}

	_, err := mustObject(t, `{"tags":[1,2]}`).optTags("tags")
	assertFieldError(t, err)
}

func TestJSONObject_OptChatID(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"c":"abc"}`, "abc"},
		{`{"c":123456789}`, "123456789"},
		{`{"c":-100200300}`, "-100200300"},
	}
	for _, tt := range tests {
		got, err := mustObject(t, tt.body).optChatID("c")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.body, err)
		}
		if got.Value != tt.want {
			t.Errorf("%s: got %q, want %q", tt.body, got.Value, tt.want)
		}
	}

	for _, body := range []string{`{"c":1.5}`, `{"c":true}`, `{"c":{}}`} {
		_, err := mustObject(t, body).optChatID("c")
		assertFieldError(t, err)
	}
}

func assertFieldError(t *testing.T, err error) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidField {
		t.Errorf("error = %v, want INVALID_FIELD", err)
	}
}

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		wantLen int
	}{
		{"object", `{"title":"x"}`, false, 1},
		{"trailing whitespace", "{\"title\":\"x\"}\n  ", false, 1},
		{"empty body", "", false, 0},
		{"null body", "null", false, 0},
		{"trailing junk", `{"title":"x"} junk`, true, 0},
		{"second object", `{"title":"x"}{"title":"y"}`, true, 0},
		{"array", `[1,2]`, true, 0},
		{"malformed", `{"title":`, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(tt.body))
			obj, err := decodeObject(httptest.NewRecorder(), req)
			if tt.wantErr {
				var apiErr *model.APIError
				if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidRequest {
					t.Fatalf("err = %v, want INVALID_REQUEST", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(obj) != tt.wantLen {
				t.Errorf("len(obj) = %d, want %d", len(obj), tt.wantLen)
			}
		})
	}
}
