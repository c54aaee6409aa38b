package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgallion1/draftlens/internal/components"
	"github.com/dgallion1/draftlens/internal/document"
)

// serve starts a service stub answering path with body and records the
// last request body it saw.
func serve(t *testing.T, path string, status int, body string) (*Client, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			t.Errorf("unexpected path %s, want %s", r.URL.Path, path)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL, ImageURL: srv.URL}), &got
}

var task = NewTask("alice_42", "Write to Alex about Friday")

func TestExtractComponents_StringPayloadWithFences(t *testing.T) {
	body := `{"components":"` + "```json\\n" + `[{\"id\":1,\"title\":\"Greeting\",\"content\":\"Dear Alex,\"},{\"id\":\"c2\",\"title\":\"Ask\",\"content\":\"Could we meet?\"}]` + "\\n```" + `"}`
	c, req := serve(t, "/component-extractor", http.StatusOK, body)

	got, err := c.ExtractComponents(context.Background(), task)
	if err != nil {
		t.Fatalf("ExtractComponents: %v", err)
	}
	want := []components.Component{
		{ID: "1", Title: "Greeting", Content: "Dear Alex,"},
		{ID: "c2", Title: "Ask", Content: "Could we meet?"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("component %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if (*req)["userName"] != "alice" || (*req)["taskId"] != "alice_42" {
		t.Errorf("unexpected request %v", *req)
	}
	if c.Stats.Snapshot()[OpExtract].Count != 1 {
		t.Error("expected latency to be recorded")
	}
}

func TestExtractComponents_ProseAroundArray(t *testing.T) {
	body := `{"components":"Here you go: [{\"id\":\"a\",\"content\":\"Hi\"}] hope that helps"}`
	c, _ := serve(t, "/component-extractor", http.StatusOK, body)
	got, err := c.ExtractComponents(context.Background(), task)
	if err != nil {
		t.Fatalf("ExtractComponents: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("got %+v", got)
	}
}

func TestExtractComponents_Malformed(t *testing.T) {
	c, _ := serve(t, "/component-extractor", http.StatusOK, `{"components":"not json at all"}`)
	_, err := c.ExtractComponents(context.Background(), task)
	var me *MalformedError
	if !errors.As(err, &me) {
		t.Fatalf("expected MalformedError, got %v", err)
	}
}

func TestPost_RetryableStatus(t *testing.T) {
	c, _ := serve(t, "/content-expand", http.StatusServiceUnavailable, "overloaded")
	_, err := c.Expand(context.Background(), task, "Hi")
	var re *RetryableError
	if !errors.As(err, &re) || re.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected RetryableError 503, got %v", err)
	}
}

func TestPost_ClientErrorNotRetryable(t *testing.T) {
	c, _ := serve(t, "/content-shorten", http.StatusBadRequest, `{"error":"Missing required fields"}`)
	_, err := c.Shorten(context.Background(), task, "Hi")
	var re *RetryableError
	if err == nil || errors.As(err, &re) {
		t.Fatalf("expected plain error, got %v", err)
	}
}

func TestLinkComponents(t *testing.T) {
	body := `{"links":[{"component_id":1,"intent_dimension":"Tone"},{"component_id":"2","intent_dimension":""}]}`
	c, req := serve(t, "/component-intent-link", http.StatusOK, body)
	links, err := c.LinkComponents(context.Background(), task, []components.Component{{ID: "1", Content: "Hi"}})
	if err != nil {
		t.Fatalf("LinkComponents: %v", err)
	}
	if len(links) != 1 || links[0] != (components.Link{ComponentID: "1", IntentDimension: "Tone"}) {
		t.Errorf("links = %+v", links)
	}
	list, ok := (*req)["componentList"].([]any)
	if !ok || len(list) != 1 {
		t.Errorf("componentList not sent: %v", *req)
	}
}

func TestAnalyzeIntents_WrappedObject(t *testing.T) {
	body := `{"intents":{"intents":[{"dimension":"Tone","current_value":"warm","other_values":["direct"]}]}}`
	c, req := serve(t, "/intent-analyzer-new", http.StatusOK, body)
	got, err := c.AnalyzeIntents(context.Background(), task)
	if err != nil {
		t.Fatalf("AnalyzeIntents: %v", err)
	}
	if len(got) != 1 || got[0].Dimension != "Tone" || got[0].OtherValues[0] != "direct" {
		t.Errorf("intents = %+v", got)
	}
	if (*req)["userTask"] != task.Description {
		t.Errorf("userTask not sent: %v", *req)
	}
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"NA", `{"recommendations":"NA"}`, 0},
		{"missing", `{}`, 0},
		{"array", `{"recommendations":[{"recommended_revision":"Hi Alex","revision_reason":"friendlier"},{"recommended_revision":" "}]}`, 1},
		{"string", `{"recommendations":"[{\"recommended_revision\":\"Hi\"}]"}`, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := serve(t, "/stylebook-recommend", http.StatusOK, tc.body)
			got, err := c.Recommend(context.Background(), task, "Dear Alex,")
			if err != nil {
				t.Fatalf("Recommend: %v", err)
			}
			if got == nil || len(got) != tc.want {
				t.Errorf("got %+v, want %d", got, tc.want)
			}
		})
	}
}

func TestIntentVariations_Request(t *testing.T) {
	body := `{"component_variations":[{"intent_value":"casual","content":"Hey Alex"}]}`
	c, req := serve(t, "/intent-change-rewriter", http.StatusOK, body)
	got, err := c.IntentVariations(context.Background(), task, VariationRequest{
		DraftLatest:      "Dear Alex,",
		ComponentCurrent: "Dear Alex,",
		Selected:         document.Intent{Dimension: "Formality", CurrentValue: "casual", OtherValues: []string{"formal"}},
	})
	if err != nil {
		t.Fatalf("IntentVariations: %v", err)
	}
	if len(got) != 1 || got[0].IntentValue != "casual" {
		t.Errorf("variations = %+v", got)
	}
	sel, _ := (*req)["intentSelected"].(map[string]any)
	if sel["current_value"] != "casual" {
		t.Errorf("intentSelected = %v", sel)
	}
	if others, ok := (*req)["intentOthers"].([]any); !ok || len(others) != 0 {
		t.Errorf("intentOthers = %v", (*req)["intentOthers"])
	}
}

func TestGenerateAnchors(t *testing.T) {
	body := `{"anchorData":"` + "```json\\n" + `{\"persona\":{\"title\":\"Alex\"},\"situation\":{\"title\":\"Meeting\"}}` + "\\n```" + `"}`
	c, _ := serve(t, "/generate-anchor-builder", http.StatusOK, body)
	a, err := c.GenerateAnchors(context.Background(), task)
	if err != nil {
		t.Fatalf("GenerateAnchors: %v", err)
	}
	var persona map[string]string
	if err := json.Unmarshal(a.Persona, &persona); err != nil || persona["title"] != "Alex" {
		t.Errorf("persona = %s", a.Persona)
	}
}

func TestGenerateAnchors_MissingSituation(t *testing.T) {
	c, _ := serve(t, "/generate-anchor-builder", http.StatusOK, `{"anchorData":"{\"persona\":{\"title\":\"Alex\"}}"}`)
	_, err := c.GenerateAnchors(context.Background(), task)
	var me *MalformedError
	if !errors.As(err, &me) {
		t.Fatalf("expected MalformedError, got %v", err)
	}
}

func TestGenerateImages(t *testing.T) {
	body := `{"personaImagePath":"p.png","situationImagePath":"s.png","personaJsonPath":"p.json","situationJsonPath":"s.json"}`
	c, req := serve(t, "/generate-and-save-images", http.StatusOK, body)
	img, err := c.GenerateImages(context.Background(), task, &Anchors{
		Persona:   json.RawMessage(`{"title":"Alex"}`),
		Situation: json.RawMessage(`{"title":"Meeting"}`),
	})
	if err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}
	if img.PersonaJSONPath != "p.json" || img.SituationImagePath != "s.png" {
		t.Errorf("images = %+v", img)
	}
	if p, _ := (*req)["personaAnchor"].(map[string]any); p["title"] != "Alex" {
		t.Errorf("personaAnchor = %v", (*req)["personaAnchor"])
	}
}

func TestDecodeLenient(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{"plain", `[1,2]`, true},
		{"fenced", "```json\n[1,2]\n```", true},
		{"inline fences", "result: ```[1,2]```", true},
		{"prose", `The answer is [1,2].`, true},
		{"garbage", `no json here`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var v []int
			err := DecodeLenient(tc.in, &v)
			if (err == nil) != tc.ok {
				t.Fatalf("DecodeLenient(%q) err = %v", tc.in, err)
			}
			if tc.ok && (len(v) != 2 || v[1] != 2) {
				t.Errorf("decoded %v", v)
			}
		})
	}
}
