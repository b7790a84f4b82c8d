package suggest

import (
	"errors"
	"strings"
	"testing"

	"taskflow/internal/domain"
	"taskflow/internal/logging"
)

var roster = []domain.Member{
	{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: domain.RoleEmployee},
	{ID: "u2", Name: "Linus", Email: "linus@example.com", Role: domain.RoleManager},
	{ID: "u3", Name: "Grace", Email: "grace@example.com", Role: domain.RoleEmployee},
}

func validate(t *testing.T, raw string) Result {
	t.Helper()
	res, err := Validator{Logger: logging.Discard()}.ParseAndValidate(raw, roster)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return res
}

func TestParseAndValidateStripsFences(t *testing.T) {
	raw := "```json\n{\"recommendations\":[{\"memberId\":\"u1\",\"memberName\":\"Ada\",\"score\":88,\"reasons\":[\"free\"],\"risks\":[],\"projectedWorkloadAfter\":45}],\"warnings\":[],\"suggestions\":[\"pair up\"]}\n```"
	res := validate(t, raw)
	if len(res.Recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(res.Recommendations))
	}
	rec := res.Recommendations[0]
	if rec.MemberID != "u1" || rec.Score != 88 || rec.ProjectedWorkloadAfter != 45 {
		t.Fatalf("unexpected recommendation: %+v", rec)
	}
	if len(res.Suggestions) != 1 || res.Suggestions[0] != "pair up" {
		t.Fatalf("suggestions lost: %+v", res.Suggestions)
	}
}

func TestStripCodeFenceVariants(t *testing.T) {
	cases := [][2]string{
		{`{"a":1}`, `{"a":1}`},
		{"  ```\n{\"a\":1}\n```  ", `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```json {\"a\":1}```", `{"a":1}`},
		{"Here you go:\n```json\n{}\n```", `{}`},
		{"{\"a\":\"x ``` y\"}", "{\"a\":\"x ``` y\"}"},
		{"```json\n{\"a\":\"x ``` y\"}\n```", "{\"a\":\"x ``` y\"}"},
	}
	for _, tc := range cases {
		if got := StripCodeFence(tc[0]); got != tc[1] {
			t.Fatalf("StripCodeFence(%q) = %q, want %q", tc[0], got, tc[1])
		}
	}
}

func TestParseAndValidateKeepsBackticksInsideStrings(t *testing.T) {
	raw := "{\"recommendations\":[{\"memberId\":\"u1\",\"score\":50,\"reasons\":[\"writes ``` fenced docs\"]}]}"
	res := validate(t, raw)
	if len(res.Recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(res.Recommendations))
	}
	if got := res.Recommendations[0].Reasons; len(got) != 1 || got[0] != "writes ``` fenced docs" {
		t.Fatalf("reason mangled: %+v", got)
	}
}

func TestParseAndValidateMalformed(t *testing.T) {
	_, err := Validator{Logger: logging.Discard()}.ParseAndValidate("not json", roster)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if errors.Is(err, ErrRequestFailed) {
		t.Fatalf("malformed output must not look like a request failure")
	}
	var me MalformedResponseError
	if !errors.As(err, &me) || me.Raw != "not json" {
		t.Fatalf("expected raw text on error, got %#v", err)
	}
}

func TestParseAndValidateDropsUnknownMembersPreservingOrder(t *testing.T) {
	raw := `{"recommendations":[
		{"memberId":"u3","score":90},
		{"memberId":"ghost","score":99},
		{"memberId":"u1","score":70},
		{"memberId":"","score":50},
		{"memberId":"u2","score":60}
	]}`
	res := validate(t, raw)
	var ids []string
	for _, r := range res.Recommendations {
		ids = append(ids, r.MemberID)
	}
	if strings.Join(ids, ",") != "u3,u1,u2" {
		t.Fatalf("unexpected order/filtering: %v", ids)
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("expected 2 drop warnings, got %v", res.Warnings)
	}
}

func TestParseAndValidateDefaultsAndClamping(t *testing.T) {
	raw := `{"recommendations":[
		{"memberId":"u1","score":-5,"projectedWorkloadAfter":5000},
		{"memberId":"u2","score":"77","projectedWorkloadAfter":"120%"},
		{"memberId":"u3","score":{"bad":true}}
	]}`
	res := validate(t, raw)
	if len(res.Recommendations) != 3 {
		t.Fatalf("expected 3 recommendations, got %d", len(res.Recommendations))
	}
	first := res.Recommendations[0]
	if first.Score != 0 || first.ProjectedWorkloadAfter != 1000 {
		t.Fatalf("expected clamped values, got %+v", first)
	}
	if first.MemberName != "Ada" {
		t.Fatalf("member name should come from roster, got %q", first.MemberName)
	}
	if first.Reasons == nil || first.Risks == nil || len(first.Reasons) != 0 {
		t.Fatalf("missing lists should be empty, got %+v", first)
	}
	second := res.Recommendations[1]
	if second.Score != 77 || second.ProjectedWorkloadAfter != 120 {
		t.Fatalf("numeric strings should be accepted, got %+v", second)
	}
	if res.Recommendations[2].Score != 0 {
		t.Fatalf("unusable score should default to 0")
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("expected 2 clamp warnings, got %v", res.Warnings)
	}
	if res.Suggestions == nil {
		t.Fatalf("suggestions must be non-nil")
	}
}
