package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	diff "github.com/shogoki/gotextdiff"

	"github.com/dgallion1/draftlens/internal/annotate"
	"github.com/dgallion1/draftlens/internal/blobstore"
	"github.com/dgallion1/draftlens/internal/components"
	"github.com/dgallion1/draftlens/internal/document"
	"github.com/dgallion1/draftlens/internal/llm"
	"github.com/dgallion1/draftlens/internal/pipeline"
)

// Mutation actions.
const (
	ActionRewrite = "rewrite"
	ActionExpand  = "expand"
	ActionShorten = "shorten"
)

// ErrNoVariation means the variation service returned nothing for the
// chosen intent value.
var ErrNoVariation = errors.New("no variation for the selected intent value")

// ErrEmptyAnswer means the service answered with blank content.
var ErrEmptyAnswer = errors.New("service returned empty content")

// AnchorResult is the persona and situation generated for a task, with the
// rendered images when they were produced.
type AnchorResult struct {
	Persona   json.RawMessage `json:"persona"`
	Situation json.RawMessage `json:"situation"`
	Images    *llm.Images     `json:"images,omitempty"`
}

// SelectResult is the outcome of Select. Blocked is set when an applied
// edit of another component still awaits its reason; the edit is in
// PendingEdit and the selection is unchanged.
type SelectResult struct {
	State
	Blocked bool `json:"blocked,omitempty"`
	Found   bool `json:"found"`
}

// retry runs an idempotent service call with backoff.
func retry[T any](ctx context.Context, m *Manager, op string, fn func(context.Context) (T, error)) (T, error) {
	return pipeline.Retry(ctx, m.log, op, fn)
}

// guarded runs fn under the session's flight guard. The call runs on a
// context that outlives the request, so an abandoned call is not cancelled
// when the caller gives up.
func guarded[T any](ctx context.Context, m *Manager, s *Session, family string, deadline time.Duration, fn func(context.Context) (T, error)) (T, error) {
	v, err := pipeline.Guard(ctx, s.flight, family, deadline, func(ctx context.Context) (T, error) {
		return fn(context.WithoutCancel(ctx))
	})
	if err != nil && !errors.Is(err, pipeline.ErrInFlight) {
		m.log.Warn("service call failed",
			"task_id", s.TaskID,
			"family", family,
			"failure", pipeline.Classify(err).String(),
			"error", err,
		)
	}
	return v, err
}

type extraction struct {
	comps    []components.Component
	intents  []document.Intent
	links    []components.Link
	analyzed bool
}

// Extract splits the draft into components, loads or analyzes the task's
// intents, links the two and paints the dimension markers. The draft is
// saved first since the service reads it from the blob store.
func (m *Manager) Extract(ctx context.Context, taskID string) (State, error) {
	s, err := m.session(taskID)
	if err != nil {
		return State{}, err
	}
	s.mu.Lock()
	text := document.NonEmptyText(s.blocks)
	task := s.task()
	s.mu.Unlock()
	if text == "" {
		return m.Get(taskID)
	}
	if err := m.blobs.Put(ctx, m.key(s, blobstore.DraftPath), []byte(text)); err != nil {
		return m.stateWith(s, fmt.Errorf("save draft: %w", err))
	}

	res, err := guarded(ctx, m, s, pipeline.FamilyExtract, m.deadlines.Action, func(ctx context.Context) (*extraction, error) {
		comps, err := retry(ctx, m, llm.OpExtract, func(ctx context.Context) ([]components.Component, error) {
			return m.svc.ExtractComponents(ctx, task)
		})
		if err != nil {
			return nil, fmt.Errorf("extract components: %w", err)
		}
		intents, analyzed, err := m.loadIntents(ctx, s, task)
		if err != nil {
			return nil, err
		}
		links, err := retry(ctx, m, llm.OpLink, func(ctx context.Context) ([]components.Link, error) {
			return m.svc.LinkComponents(ctx, task, comps)
		})
		if err != nil {
			return nil, fmt.Errorf("link components: %w", err)
		}
		return &extraction{comps: comps, intents: intents, links: links, analyzed: analyzed}, nil
	})
	if err != nil {
		return m.stateWith(s, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	err = s.safely("extract", func() error {
		s.reg.Replace(res.comps)
		s.reg.SetIntents(res.intents)
		s.reg.SetLinks(res.links)
		s.selected = ""
		s.preview = nil
		s.recs, s.recsFor = nil, ""
		m.logMissing(s, s.repaint())
		return nil
	})
	if res.analyzed {
		if data, merr := json.Marshal(res.intents); merr == nil {
			m.persist(s, blobstore.IntentsPath, data)
		}
	}
	m.log.Info("components extracted",
		"task_id", s.TaskID,
		"components", len(res.comps),
		"intents", len(res.intents),
		"links", len(res.links),
	)
	return s.snapshot(), err
}

// loadIntents reads the task's stored intents, falling back to the intent
// analyzer when none are stored or they cannot be parsed.
func (m *Manager) loadIntents(ctx context.Context, s *Session, task llm.Task) ([]document.Intent, bool, error) {
	data, err := m.blobs.Get(ctx, m.key(s, blobstore.IntentsPath))
	switch {
	case err == nil:
		intents, derr := llm.DecodeIntents(llm.OpIntents, data)
		if derr == nil {
			return intents, false, nil
		}
		m.log.Warn("stored intents unreadable, analyzing", "task_id", s.TaskID, "error", derr)
	case errors.Is(err, blobstore.ErrNotFound):
	default:
		return nil, false, fmt.Errorf("load intents: %w", err)
	}
	intents, err := retry(ctx, m, llm.OpIntents, func(ctx context.Context) ([]document.Intent, error) {
		return m.svc.AnalyzeIntents(ctx, task)
	})
	if err != nil {
		return nil, false, fmt.Errorf("analyze intents: %w", err)
	}
	return intents, true, nil
}

// stateWith returns the session's current state alongside err.
func (m *Manager) stateWith(s *Session, err error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), err
}

// Select highlights a component. Selecting the selected component again
// deselects it.
func (m *Manager) Select(taskID, componentID string) (SelectResult, error) {
	var out SelectResult
	st, err := m.do(taskID, func(s *Session) error {
		if s.pending != nil && s.pending.ComponentID != componentID {
			out.Blocked = true
			return nil
		}
		if s.selected == componentID {
			s.blocks = document.Clear(s.blocks, document.LayerHighlight)
			s.selected = ""
			return nil
		}
		cr, ok := s.reg.CombinedFor(componentID)
		if !ok {
			return fmt.Errorf("select %s: %w", componentID, components.ErrUnknownComponent)
		}
		return s.safely("select", func() error {
			res := annotate.Highlight(s.blocks, cr)
			s.blocks = res.Blocks
			s.selected = componentID
			out.Found = res.Found
			if !res.Found {
				m.logMissing(s, []string{componentID})
			}
			return nil
		})
	})
	out.State = st
	return out, err
}

// ResolveEdit settles the pending edit. With a reason the edit is recorded
// on the service and the pending edit stays in place if that fails, so the
// reason can be sent again. Without one the edit is dropped.
func (m *Manager) ResolveEdit(ctx context.Context, taskID, reason string) (State, error) {
	s, err := m.session(taskID)
	if err != nil {
		return State{}, err
	}
	s.mu.Lock()
	e := s.pending
	task := s.task()
	if e == nil || strings.TrimSpace(reason) == "" {
		s.pending = nil
		s.mu.Unlock()
		return m.stateWith(s, nil)
	}
	s.mu.Unlock()

	if err := m.svc.SaveManualEdit(ctx, task, strings.TrimSpace(reason), e.OldContent, e.NewContent); err != nil {
		m.log.Warn("recording edit reason failed", "task_id", s.TaskID, "component_id", e.ComponentID, "error", err)
		return m.stateWith(s, fmt.Errorf("save edit reason: %w", err))
	}
	s.mu.Lock()
	// A newer edit may have replaced e while the call ran.
	if s.pending == e {
		s.pending = nil
	}
	s.mu.Unlock()
	m.log.Info("edit reason recorded", "task_id", s.TaskID, "component_id", e.ComponentID)
	return m.stateWith(s, nil)
}

// Edit replaces a component's content with text written by the user.
func (m *Manager) Edit(ctx context.Context, taskID, componentID, newContent string) (State, error) {
	return m.do(taskID, func(s *Session) error {
		return m.apply(s, componentID, newContent, "manual")
	})
}

// apply swaps a component's content in the draft and records the change
// as the pending edit. Called with s.mu held.
func (m *Manager) apply(s *Session, componentID, newContent, source string) error {
	c, ok := s.reg.Get(componentID)
	if !ok {
		return fmt.Errorf("apply %s: %w", componentID, components.ErrUnknownComponent)
	}
	if c.Content == newContent {
		return nil
	}
	var res *pipeline.EditResult
	err := s.safely("apply "+source, func() error {
		r, err := pipeline.ApplyEdit(s.reg, componentID, c.Content, newContent, document.NonEmptyText(s.blocks))
		if err != nil {
			return err
		}
		s.blocks = r.Blocks
		s.selected = componentID
		res = r
		return nil
	})
	if err != nil {
		return err
	}
	s.pending = &Edit{ComponentID: componentID, OldContent: c.Content, NewContent: newContent}
	if s.preview != nil && s.preview.ComponentID == componentID {
		s.preview = nil
	}
	m.logMissing(s, res.Missing)
	m.persistDraft(s, res.Text)
	m.log.Info("component updated", "task_id", s.TaskID, "component_id", componentID, "source", source)
	return nil
}

// Mutate asks the service to rewrite, expand or shorten a component and
// stages the answer as a preview.
func (m *Manager) Mutate(ctx context.Context, taskID, componentID, action, prompt string) (State, error) {
	switch action {
	case ActionRewrite, ActionExpand, ActionShorten:
	default:
		return State{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	s, err := m.session(taskID)
	if err != nil {
		return State{}, err
	}
	s.mu.Lock()
	c, ok := s.reg.Get(componentID)
	task := s.task()
	s.mu.Unlock()
	if !ok {
		return m.stateWith(s, fmt.Errorf("%s %s: %w", action, componentID, components.ErrUnknownComponent))
	}

	out, err := guarded(ctx, m, s, pipeline.FamilyMutate, m.deadlines.Action, func(ctx context.Context) (string, error) {
		return retry(ctx, m, action, func(ctx context.Context) (string, error) {
			switch action {
			case ActionRewrite:
				return m.svc.Rewrite(ctx, task, c.Content, prompt)
			case ActionExpand:
				return m.svc.Expand(ctx, task, c.Content)
			default:
				return m.svc.Shorten(ctx, task, c.Content)
			}
		})
	})
	if err != nil {
		return m.stateWith(s, err)
	}
	return m.stage(s, c, action, out, nil)
}

// stage records a preview for c unless c changed while the service call
// was running.
func (m *Manager) stage(s *Session, c components.Component, source, content string, intent *document.Intent) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if strings.TrimSpace(content) == "" {
		return s.snapshot(), fmt.Errorf("stage %s for %s: %w", source, c.ID, ErrEmptyAnswer)
	}
	cur, ok := s.reg.Get(c.ID)
	if !ok || cur.Content != c.Content {
		return s.snapshot(), fmt.Errorf("stage %s for %s: %w", source, c.ID, pipeline.ErrStaleContent)
	}
	s.preview = &Preview{
		ID:          pipeline.NewID(),
		ComponentID: c.ID,
		Source:      source,
		OldContent:  c.Content,
		NewContent:  content,
		Diff:        previewDiff(c.Content, content),
		Intent:      intent,
		CreatedAt:   time.Now().UTC(),
	}
	return s.snapshot(), nil
}

// ChangeIntent moves the selected component's intent to a new value: it
// asks the variation service for matching content, then swaps the value in
// on that component alone and stages the content as a preview.
func (m *Manager) ChangeIntent(ctx context.Context, taskID, dimension, value string) (State, error) {
	s, err := m.session(taskID)
	if err != nil {
		return State{}, err
	}
	s.mu.Lock()
	cr, ok := s.reg.CombinedFor(s.selected)
	draft := document.NonEmptyText(s.blocks)
	task := s.task()
	s.mu.Unlock()
	if !ok {
		return m.stateWith(s, ErrNoSelection)
	}

	var target *document.Intent
	var others []llm.IntentRef
	for i, in := range cr.LinkedIntents {
		if sameDimension(in.Dimension, dimension) {
			target = &cr.LinkedIntents[i]
			continue
		}
		others = append(others, llm.IntentRef{Dimension: in.Dimension, CurrentValue: in.CurrentValue})
	}
	if target == nil {
		return m.stateWith(s, fmt.Errorf("%s on %s: %w", dimension, cr.ID, components.ErrUnknownIntent))
	}
	if target.CurrentValue == value {
		return m.stateWith(s, nil)
	}

	selected := document.Intent{Dimension: target.Dimension, CurrentValue: value, OtherValues: []string{}}
	for _, v := range append([]string{target.CurrentValue}, target.OtherValues...) {
		if v != value {
			selected.OtherValues = append(selected.OtherValues, v)
		}
	}

	vars, err := guarded(ctx, m, s, pipeline.FamilyIntent, m.deadlines.Action, func(ctx context.Context) ([]llm.Variation, error) {
		return retry(ctx, m, llm.OpVariations, func(ctx context.Context) ([]llm.Variation, error) {
			return m.svc.IntentVariations(ctx, task, llm.VariationRequest{
				DraftLatest:      draft,
				ComponentCurrent: cr.Content,
				Selected:         selected,
				Others:           others,
			})
		})
	})
	if err != nil {
		return m.stateWith(s, err)
	}
	content, ok := pickVariation(vars, value)
	if !ok {
		return m.stateWith(s, fmt.Errorf("%s=%s: %w", target.Dimension, value, ErrNoVariation))
	}
	if strings.TrimSpace(content) == "" {
		return m.stateWith(s, fmt.Errorf("%s=%s: %w", target.Dimension, value, ErrEmptyAnswer))
	}

	s.mu.Lock()
	_, after, err := s.reg.SetComponentIntent(cr.ID, target.Dimension, value)
	if err == nil {
		err = s.safely("change intent", func() error {
			m.logMissing(s, s.repaint())
			return nil
		})
	}
	s.mu.Unlock()
	if err != nil {
		return m.stateWith(s, err)
	}
	m.log.Info("intent changed", "task_id", s.TaskID, "component_id", cr.ID, "dimension", target.Dimension, "value", value)
	return m.stage(s, cr.Component, "intent", content, &after)
}

func pickVariation(vars []llm.Variation, value string) (string, bool) {
	for _, v := range vars {
		if v.IntentValue == value {
			return v.Content, true
		}
	}
	for _, v := range vars {
		if sameDimension(v.IntentValue, value) {
			return v.Content, true
		}
	}
	return "", false
}

func sameDimension(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ApplyPreview applies the staged preview to the selected component.
func (m *Manager) ApplyPreview(ctx context.Context, taskID string) (State, error) {
	return m.do(taskID, func(s *Session) error {
		if s.preview == nil {
			return ErrNoPreview
		}
		if s.selected == "" {
			return ErrNoSelection
		}
		p := s.preview
		if err := m.apply(s, s.selected, p.NewContent, p.Source); err != nil {
			return err
		}
		s.preview = nil
		return nil
	})
}

// DiscardPreview drops the staged preview.
func (m *Manager) DiscardPreview(taskID string) (State, error) {
	return m.do(taskID, func(s *Session) error {
		s.preview = nil
		return nil
	})
}

// Recommend fetches stylebook recommendations for a component.
func (m *Manager) Recommend(ctx context.Context, taskID, componentID string) (State, error) {
	s, err := m.session(taskID)
	if err != nil {
		return State{}, err
	}
	s.mu.Lock()
	c, ok := s.reg.Get(componentID)
	task := s.task()
	s.mu.Unlock()
	if !ok {
		return m.stateWith(s, fmt.Errorf("recommend %s: %w", componentID, components.ErrUnknownComponent))
	}

	recs, err := guarded(ctx, m, s, pipeline.FamilyRecommend, m.deadlines.Action, func(ctx context.Context) ([]llm.Recommendation, error) {
		return retry(ctx, m, llm.OpRecommend, func(ctx context.Context) ([]llm.Recommendation, error) {
			return m.svc.Recommend(ctx, task, c.Content)
		})
	})
	if err != nil {
		return m.stateWith(s, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs, s.recsFor = recs, componentID
	return s.snapshot(), nil
}

// ApplyQuickfix applies recommendation index of the last Recommend call
// directly to its component.
func (m *Manager) ApplyQuickfix(ctx context.Context, taskID string, index int) (State, error) {
	return m.do(taskID, func(s *Session) error {
		if s.recsFor == "" || index < 0 || index >= len(s.recs) {
			return fmt.Errorf("quickfix %d: %w", index, ErrNoRecommendation)
		}
		rev := s.recs[index].RecommendedRevision
		if strings.TrimSpace(rev) == "" {
			return fmt.Errorf("quickfix %d: %w", index, ErrEmptyAnswer)
		}
		if err := m.apply(s, s.recsFor, rev, "quickfix"); err != nil {
			return err
		}
		s.recs, s.recsFor = nil, ""
		return nil
	})
}

// Regenerate asks the service for a fresh draft from the user's factor
// choices and replaces the document with it. The new draft is stored as
// the latest draft and archived under a numbered name.
func (m *Manager) Regenerate(ctx context.Context, taskID string, factors json.RawMessage) (State, error) {
	s, err := m.session(taskID)
	if err != nil {
		return State{}, err
	}
	s.mu.Lock()
	task := s.task()
	intents := s.reg.Intents()
	s.mu.Unlock()

	draft, err := guarded(ctx, m, s, pipeline.FamilyRegenerate, m.deadlines.Action, func(ctx context.Context) (string, error) {
		return m.svc.RegenerateDraft(ctx, task, factors, intents)
	})
	if err != nil {
		return m.stateWith(s, err)
	}

	archive, err := m.nextDraftPath(ctx, s)
	if err != nil {
		m.log.Warn("listing drafts failed, not archiving", "task_id", s.TaskID, "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	err = s.safely("regenerate", func() error {
		s.blocks = document.FromText(draft)
		s.clearAnnotations()
		s.pending = nil
		s.notice = ""
		return nil
	})
	if err != nil {
		return s.snapshot(), err
	}
	text := document.NonEmptyText(s.blocks)
	m.persistDraft(s, text)
	if archive != "" {
		m.persist(s, archive, []byte(text))
	}
	m.log.Info("draft regenerated", "task_id", s.TaskID, "bytes", len(text), "archive", archive)
	return s.snapshot(), nil
}

// nextDraftPath returns the next free numbered draft path, such as
// drafts/03_draft.md.
func (m *Manager) nextDraftPath(ctx context.Context, s *Session) (string, error) {
	paths, err := m.blobs.List(ctx, s.User, s.TaskID, blobstore.DraftsDir)
	if err != nil {
		return "", err
	}
	return NextDraftPath(paths), nil
}

// NextDraftPath picks the numbered draft path following the highest one in
// paths.
func NextDraftPath(paths []string) string {
	var nums []int
	for _, p := range paths {
		name := p[strings.LastIndex(p, "/")+1:]
		prefix, ok := strings.CutSuffix(name, "_draft.md")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(prefix); err == nil {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	next := 1
	if len(nums) > 0 {
		next = nums[len(nums)-1] + 1
	}
	return fmt.Sprintf("%s/%02d_draft.md", blobstore.DraftsDir, next)
}

// GenerateAnchors builds the task's persona and situation anchors, stores
// them, and then renders their images. Each step has its own deadline.
func (m *Manager) GenerateAnchors(ctx context.Context, taskID string) (State, error) {
	s, err := m.session(taskID)
	if err != nil {
		return State{}, err
	}
	if s.flight.Busy(pipeline.FamilyImages) {
		return m.stateWith(s, fmt.Errorf("%s: %w", pipeline.FamilyImages, pipeline.ErrInFlight))
	}
	s.mu.Lock()
	task := s.task()
	s.mu.Unlock()

	anchors, err := guarded(ctx, m, s, pipeline.FamilyAnchors, m.deadlines.Anchor, func(ctx context.Context) (*llm.Anchors, error) {
		return m.svc.GenerateAnchors(ctx, task)
	})
	if err != nil {
		return m.stateWith(s, fmt.Errorf("generate anchors: %w", err))
	}
	if data, merr := json.Marshal(anchors); merr == nil {
		m.persist(s, blobstore.AnchorsPath, data)
	}

	s.mu.Lock()
	s.anchors = &AnchorResult{Persona: anchors.Persona, Situation: anchors.Situation}
	s.mu.Unlock()

	images, err := guarded(ctx, m, s, pipeline.FamilyImages, m.deadlines.Image, func(ctx context.Context) (*llm.Images, error) {
		return m.svc.GenerateImages(ctx, task, anchors)
	})
	if err != nil {
		return m.stateWith(s, fmt.Errorf("generate images: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchors.Images = images
	m.log.Info("anchors generated", "task_id", s.TaskID, "persona_image", images.PersonaImagePath)
	return s.snapshot(), nil
}

// previewDiff is a unified diff of a component before and after a staged
// change.
func previewDiff(before, after string) string {
	return string(diff.Diff("current", []byte(before+"\n"), "preview", []byte(after+"\n")))
}
