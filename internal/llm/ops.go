package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgallion1/draftlens/internal/components"
	"github.com/dgallion1/draftlens/internal/document"
)

// Operation names, used as stats keys and in errors.
const (
	OpExtract    = "extract_components"
	OpIntents    = "analyze_intents"
	OpLink       = "link_components"
	OpRewrite    = "rewrite"
	OpExpand     = "expand"
	OpShorten    = "shorten"
	OpVariations = "intent_variations"
	OpRecommend  = "recommend"
	OpManualEdit = "save_manual_edit"
	OpRegenerate = "regenerate_draft"
	OpAnchors    = "generate_anchors"
	OpImages     = "generate_images"
)

type taskRef struct {
	UserName string `json:"userName"`
	TaskID   string `json:"taskId"`
}

type taskWithDesc struct {
	UserTask string `json:"userTask"`
	UserName string `json:"userName"`
	TaskID   string `json:"taskId"`
}

func (t Task) ref() taskRef { return taskRef{UserName: t.User, TaskID: t.ID} }

func (t Task) withDesc() taskWithDesc {
	return taskWithDesc{UserTask: t.Description, UserName: t.User, TaskID: t.ID}
}

type wireComponent struct {
	ID      flexID `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ExtractComponents asks the service to split the saved draft into
// components.
func (c *Client) ExtractComponents(ctx context.Context, t Task) ([]components.Component, error) {
	var resp struct {
		Components json.RawMessage `json:"components"`
	}
	if err := c.post(ctx, c.httpClient, OpExtract, c.url("/component-extractor"), t.ref(), &resp); err != nil {
		return nil, err
	}
	var wire []wireComponent
	if err := decodeEmbedded(OpExtract, resp.Components, &wire); err != nil {
		return nil, err
	}
	out := make([]components.Component, len(wire))
	for i, w := range wire {
		out[i] = components.Component{ID: string(w.ID), Title: w.Title, Content: w.Content}
	}
	return ValidateComponents(out), nil
}

// AnalyzeIntents asks the service for the draft's intent dimensions.
func (c *Client) AnalyzeIntents(ctx context.Context, t Task) ([]document.Intent, error) {
	var resp struct {
		Intents json.RawMessage `json:"intents"`
	}
	if err := c.post(ctx, c.httpClient, OpIntents, c.url("/intent-analyzer-new"), t.withDesc(), &resp); err != nil {
		return nil, err
	}
	return DecodeIntents(OpIntents, resp.Intents)
}

// DecodeIntents parses an intent list, accepting either a bare array or an
// object with an "intents" array.
func DecodeIntents(op string, raw json.RawMessage) ([]document.Intent, error) {
	var intents []document.Intent
	if err := decodeEmbedded(op, raw, &intents); err == nil {
		return ValidateIntents(intents), nil
	}
	var wrapped struct {
		Intents []document.Intent `json:"intents"`
	}
	if err := decodeEmbedded(op, raw, &wrapped); err != nil {
		return nil, err
	}
	return ValidateIntents(wrapped.Intents), nil
}

type wireLink struct {
	ComponentID     flexID `json:"component_id"`
	IntentDimension string `json:"intent_dimension"`
}

// LinkComponents asks which intent dimensions each component expresses.
func (c *Client) LinkComponents(ctx context.Context, t Task, comps []components.Component) ([]components.Link, error) {
	req := struct {
		taskRef
		ComponentList []components.Component `json:"componentList"`
	}{t.ref(), comps}
	var resp struct {
		Links json.RawMessage `json:"links"`
	}
	if err := c.post(ctx, c.httpClient, OpLink, c.url("/component-intent-link"), req, &resp); err != nil {
		return nil, err
	}
	var wire []wireLink
	if err := decodeEmbedded(OpLink, resp.Links, &wire); err != nil {
		return nil, err
	}
	links := make([]components.Link, 0, len(wire))
	for _, w := range wire {
		if w.IntentDimension == "" {
			continue
		}
		links = append(links, components.Link{ComponentID: string(w.ComponentID), IntentDimension: w.IntentDimension})
	}
	return links, nil
}

// Rewrite rewrites selected following the user's instruction.
func (c *Client) Rewrite(ctx context.Context, t Task, selected, prompt string) (string, error) {
	req := struct {
		taskWithDesc
		SelectedContent string `json:"selectedContent"`
		UserPrompt      string `json:"userPrompt"`
	}{t.withDesc(), selected, prompt}
	var resp struct {
		Content string `json:"rewrittenContent"`
	}
	if err := c.post(ctx, c.httpClient, OpRewrite, c.url("/ai-generate-rewrite"), req, &resp); err != nil {
		return "", err
	}
	return nonEmpty(OpRewrite, resp.Content)
}

// Expand lengthens selected.
func (c *Client) Expand(ctx context.Context, t Task, selected string) (string, error) {
	var resp struct {
		Content string `json:"expandedContent"`
	}
	if err := c.post(ctx, c.httpClient, OpExpand, c.url("/content-expand"), selectedReq(t, selected), &resp); err != nil {
		return "", err
	}
	return nonEmpty(OpExpand, resp.Content)
}

// Shorten condenses selected.
func (c *Client) Shorten(ctx context.Context, t Task, selected string) (string, error) {
	var resp struct {
		Content string `json:"shortenedContent"`
	}
	if err := c.post(ctx, c.httpClient, OpShorten, c.url("/content-shorten"), selectedReq(t, selected), &resp); err != nil {
		return "", err
	}
	return nonEmpty(OpShorten, resp.Content)
}

type selectedContentReq struct {
	taskRef
	SelectedContent string `json:"selectedContent"`
}

func selectedReq(t Task, selected string) selectedContentReq {
	return selectedContentReq{t.ref(), selected}
}

func nonEmpty(op, s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", &MalformedError{Op: op, Err: fmt.Errorf("empty content")}
	}
	return s, nil
}

// IntentRef is the dimension and value of an intent not being changed.
type IntentRef struct {
	Dimension    string `json:"dimension"`
	CurrentValue string `json:"current_value"`
}

// VariationRequest asks for rewrites of one component under a changed
// intent value.
type VariationRequest struct {
	DraftLatest      string
	ComponentCurrent string
	Selected         document.Intent
	Others           []IntentRef
}

// Variation is one candidate rewrite keyed by intent value.
type Variation struct {
	IntentValue string `json:"intent_value"`
	Content     string `json:"content"`
}

// IntentVariations returns component rewrites for the selected intent.
func (c *Client) IntentVariations(ctx context.Context, t Task, vr VariationRequest) ([]Variation, error) {
	others := vr.Others
	if others == nil {
		others = []IntentRef{}
	}
	req := struct {
		taskWithDesc
		DraftLatest      string          `json:"draftLatest"`
		ComponentCurrent string          `json:"componentCurrent"`
		IntentSelected   document.Intent `json:"intentSelected"`
		IntentOthers     []IntentRef     `json:"intentOthers"`
	}{t.withDesc(), vr.DraftLatest, vr.ComponentCurrent, vr.Selected, others}
	var resp struct {
		Variations json.RawMessage `json:"component_variations"`
	}
	if err := c.post(ctx, c.httpClient, OpVariations, c.url("/intent-change-rewriter"), req, &resp); err != nil {
		return nil, err
	}
	var out []Variation
	if err := decodeEmbedded(OpVariations, resp.Variations, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Recommendation is a stylebook-driven suggested revision.
type Recommendation struct {
	RecommendedRevision string `json:"recommended_revision"`
	RevisionReason      string `json:"revision_reason,omitempty"`
	StylebookReference  string `json:"stylebook_reference,omitempty"`
}

// Recommend returns stylebook recommendations for selected. A service
// answer of "NA" means there are none.
func (c *Client) Recommend(ctx context.Context, t Task, selected string) ([]Recommendation, error) {
	req := struct {
		taskWithDesc
		SelectedContent string `json:"selectedContent"`
	}{t.withDesc(), selected}
	var resp struct {
		Recommendations json.RawMessage `json:"recommendations"`
	}
	if err := c.post(ctx, c.httpClient, OpRecommend, c.url("/stylebook-recommend"), req, &resp); err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(string(resp.Recommendations))
	if raw == "" || raw == "null" || raw == `"NA"` || raw == `""` {
		return []Recommendation{}, nil
	}
	var out []Recommendation
	if err := decodeEmbedded(OpRecommend, resp.Recommendations, &out); err != nil {
		return nil, err
	}
	recs := out[:0]
	for _, r := range out {
		if strings.TrimSpace(r.RecommendedRevision) != "" {
			recs = append(recs, r)
		}
	}
	return recs, nil
}

// SaveManualEdit records why the user edited a component by hand.
func (c *Client) SaveManualEdit(ctx context.Context, t Task, reason, before, after string) error {
	req := struct {
		taskWithDesc
		UserEditReason      string `json:"userEditReason"`
		ComponentBeforeEdit string `json:"componentBeforeEdit"`
		ComponentAfterEdit  string `json:"componentAfterEdit"`
	}{t.withDesc(), reason, before, after}
	return c.post(ctx, c.httpClient, OpManualEdit, c.url("/save-manual-edit-tool"), req, nil)
}

// RegenerateDraft writes a fresh draft from the user's factor choices and
// the current intents.
func (c *Client) RegenerateDraft(ctx context.Context, t Task, factors json.RawMessage, intents []document.Intent) (string, error) {
	if len(factors) == 0 {
		factors = json.RawMessage("[]")
	}
	if intents == nil {
		intents = []document.Intent{}
	}
	req := struct {
		taskWithDesc
		FactorChoices json.RawMessage   `json:"factorChoices"`
		IntentCurrent []document.Intent `json:"intentCurrent"`
	}{t.withDesc(), factors, intents}
	var resp struct {
		Draft string `json:"draft"`
	}
	if err := c.post(ctx, c.httpClient, OpRegenerate, c.url("/regenerate-draft"), req, &resp); err != nil {
		return "", err
	}
	return nonEmpty(OpRegenerate, strings.TrimSpace(resp.Draft))
}

// Anchors are the persona and situation descriptions generated for a task.
type Anchors struct {
	Persona   json.RawMessage `json:"persona"`
	Situation json.RawMessage `json:"situation"`
}

// GenerateAnchors builds the persona and situation anchors for the task.
func (c *Client) GenerateAnchors(ctx context.Context, t Task) (*Anchors, error) {
	var resp struct {
		AnchorData json.RawMessage `json:"anchorData"`
	}
	if err := c.post(ctx, c.anchorClient, OpAnchors, c.url("/generate-anchor-builder"), t.withDesc(), &resp); err != nil {
		return nil, err
	}
	var a Anchors
	if err := decodeEmbedded(OpAnchors, resp.AnchorData, &a); err != nil {
		return nil, err
	}
	if isBlank(a.Persona) || isBlank(a.Situation) {
		return nil, &MalformedError{Op: OpAnchors, Err: fmt.Errorf("missing persona or situation")}
	}
	return &a, nil
}

func isBlank(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null" || s == `""` || s == "{}"
}

// Images are the locations of the generated anchor images and their JSON
// descriptions.
type Images struct {
	PersonaImagePath   string `json:"personaImagePath"`
	SituationImagePath string `json:"situationImagePath"`
	PersonaJSONPath    string `json:"personaJsonPath"`
	SituationJSONPath  string `json:"situationJsonPath"`
}

// GenerateImages renders images for the anchors on the image service.
func (c *Client) GenerateImages(ctx context.Context, t Task, a *Anchors) (*Images, error) {
	req := struct {
		UserName        string          `json:"userName"`
		PersonaAnchor   json.RawMessage `json:"personaAnchor"`
		SituationAnchor json.RawMessage `json:"situationAnchor"`
		UserTask        string          `json:"userTask"`
		TaskID          string          `json:"taskId"`
	}{t.User, a.Persona, a.Situation, t.Description, t.ID}
	var img Images
	if err := c.post(ctx, c.imageClient, OpImages, c.imageURL+"/generate-and-save-images", req, &img); err != nil {
		return nil, err
	}
	if img.PersonaImagePath == "" || img.SituationImagePath == "" {
		return nil, &MalformedError{Op: OpImages, Err: fmt.Errorf("missing image paths")}
	}
	return &img, nil
}
