package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func committedSession() Session {
	images := []GeneratedImage{
		{ID: NeutralSlotID, URL: "data:a", Kind: ImageKindNeutral},
		{ID: LifestyleSlotID(0), URL: "data:b", Kind: ImageKindLifestyle},
	}
	return sessionWithPhoto().Commit(chairDraft(), images)
}

func TestSession_NewSession(t *testing.T) {
	s := NewSession()
	assert.Equal(t, StageAwaitingInput, s.Stage)
	assert.False(t, s.HasSource())
	assert.Nil(t, s.Draft)
	assert.Empty(t, s.Images)
}

func TestSession_WithSourceDropsResult(t *testing.T) {
	s := committedSession().WithSource(SourceImage{Data: []byte("other")})
	assert.Equal(t, StageAwaitingInput, s.Stage)
	assert.Equal(t, []byte("other"), s.Source.Data)
	assert.Nil(t, s.Draft)
	assert.Empty(t, s.Images)
}

func TestSession_RestartKeepsSource(t *testing.T) {
	s := committedSession()
	r := s.Restart()
	assert.Equal(t, StageAwaitingInput, r.Stage)
	assert.Equal(t, s.Source, r.Source)
	assert.Nil(t, r.Draft)
	assert.Empty(t, r.Images)
}

func TestSession_CommitCopiesInputs(t *testing.T) {
	draft := chairDraft()
	images := []GeneratedImage{{ID: NeutralSlotID, URL: "data:a"}}
	s := sessionWithPhoto().Commit(draft, images)

	draft.Title = "changed"
	draft.Tips[0] = "changed"
	images[0].URL = "changed"

	assert.Equal(t, StageReviewing, s.Stage)
	assert.Equal(t, "Chaise vintage", s.Draft.Title)
	assert.Equal(t, "Photo en lumière naturelle", s.Draft.Tips[0])
	assert.Equal(t, "data:a", s.Images[0].URL)
}

func TestSession_WithImageURL(t *testing.T) {
	s := committedSession()

	next, ok := s.WithImageURL(LifestyleSlotID(0), "data:new")
	assert.True(t, ok)
	assert.Equal(t, "data:new", next.Images[1].URL)
	assert.Equal(t, ImageKindLifestyle, next.Images[1].Kind)
	assert.Equal(t, "data:b", s.Images[1].URL)

	_, ok = s.WithImageURL("action-9", "data:new")
	assert.False(t, ok)
}

func TestSession_ManualEdits(t *testing.T) {
	s := committedSession()
	edited := s.WithTitle("Chaise scandinave").WithPrice("60").WithDescription("En chêne")

	assert.Equal(t, "Chaise scandinave", edited.Draft.Title)
	assert.Equal(t, "60", edited.Draft.Price)
	assert.Equal(t, "En chêne", edited.Draft.Description)
	assert.Equal(t, "Chaise vintage", s.Draft.Title)
	assert.Equal(t, s.Draft.Tips, edited.Draft.Tips)
}

func TestSession_EditsIgnoredWhileAwaitingInput(t *testing.T) {
	s := sessionWithPhoto().WithTitle("x")
	assert.Nil(t, s.Draft)
	assert.Equal(t, StageAwaitingInput, s.Stage)
}

func TestProgress_String(t *testing.T) {
	assert.Equal(t, "lifestyle placement (2/3)", Progress{Step: StepLifestyle, Current: 2, Total: 3}.String())
	assert.Equal(t, "", Progress{}.String())
	assert.True(t, Progress{}.Done())
	assert.False(t, Progress{Step: StepRefining}.Done())
}

func TestLifestyleSlotID(t *testing.T) {
	assert.Equal(t, "action-0", LifestyleSlotID(0))
	assert.Equal(t, "action-4", LifestyleSlotID(4))
}
