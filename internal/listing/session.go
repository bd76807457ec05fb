package listing

// Stage is the position of a session in the listing flow.
type Stage int

const (
	StageAwaitingInput Stage = iota
	StageReviewing
)

// String returns a human-readable name for the Stage.
func (s Stage) String() string {
	switch s {
	case StageAwaitingInput:
		return "AwaitingInput"
	case StageReviewing:
		return "Reviewing"
	default:
		return "Unknown"
	}
}

// Session is the whole state of one listing flow. Transitions are methods
// with value receivers that return the next state; the receiver is never
// modified, so a caller holding an older Session keeps a consistent view.
//
// Invariant: Draft is nil and Images is empty while in StageAwaitingInput,
// and both are populated while in StageReviewing.
type Session struct {
	Stage  Stage
	Source SourceImage
	Draft  *Draft
	Images []GeneratedImage
}

// NewSession returns an empty session waiting for a photo.
func NewSession() Session {
	return Session{Stage: StageAwaitingInput}
}

// HasSource reports whether a photo has been uploaded.
func (s Session) HasSource() bool {
	return !s.Source.IsZero()
}

// WithSource replaces the source image. Any previous result belongs to the
// old photo, so the session goes back to StageAwaitingInput.
func (s Session) WithSource(img SourceImage) Session {
	return Session{Stage: StageAwaitingInput, Source: img}
}

// Restart drops the current result but keeps the photo.
func (s Session) Restart() Session {
	return Session{Stage: StageAwaitingInput, Source: s.Source}
}

// Commit publishes a complete generation result and moves to StageReviewing.
func (s Session) Commit(draft *Draft, images []GeneratedImage) Session {
	next := Session{
		Stage:  StageReviewing,
		Source: s.Source,
		Draft:  draft.clone(),
		Images: make([]GeneratedImage, len(images)),
	}
	copy(next.Images, images)
	return next
}

// Image returns the slot with the given ID.
func (s Session) Image(id string) (GeneratedImage, bool) {
	for _, img := range s.Images {
		if img.ID == id {
			return img, true
		}
	}
	return GeneratedImage{}, false
}

// WithImageURL replaces the URL of one slot, keeping its ID, kind and
// position. The second return value is false when no slot has that ID.
func (s Session) WithImageURL(id, url string) (Session, bool) {
	idx := -1
	for i, img := range s.Images {
		if img.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return s, false
	}
	next := s
	next.Draft = s.Draft.clone()
	next.Images = make([]GeneratedImage, len(s.Images))
	copy(next.Images, s.Images)
	next.Images[idx].URL = url
	return next, true
}

// WithDraft applies fn to a copy of the draft. It is a no-op outside of
// StageReviewing.
func (s Session) WithDraft(fn func(d *Draft)) Session {
	if s.Stage != StageReviewing || s.Draft == nil {
		return s
	}
	next := s
	next.Draft = s.Draft.clone()
	fn(next.Draft)
	return next
}

// WithTitle sets the listing title.
func (s Session) WithTitle(title string) Session {
	return s.WithDraft(func(d *Draft) { d.Title = title })
}

// WithDescription sets the listing description.
func (s Session) WithDescription(description string) Session {
	return s.WithDraft(func(d *Draft) { d.Description = description })
}

// WithPrice sets the listing price.
func (s Session) WithPrice(price string) Session {
	return s.WithDraft(func(d *Draft) { d.Price = price })
}
