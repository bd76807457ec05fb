package listing

import "strconv"

// DefaultMIMEType is sent with the source image when the caller did not
// detect one.
const DefaultMIMEType = "image/png"

const (
	MinImageCount     = 1
	MaxImageCount     = 5
	DefaultImageCount = 3
)

// Slot IDs are stable for the lifetime of a session.
const NeutralSlotID = "neutral"

// LifestyleSlotID returns the slot ID of the i-th lifestyle image.
func LifestyleSlotID(i int) string {
	return "action-" + strconv.Itoa(i)
}

// SourceImage is the uploaded photo. It is read by every generation call
// and never modified.
type SourceImage struct {
	Data     []byte
	MIMEType string
}

// IsZero reports whether no image has been set.
func (img SourceImage) IsZero() bool {
	return len(img.Data) == 0
}

// MIME returns the image MIME type, falling back to DefaultMIMEType.
func (img SourceImage) MIME() string {
	if img.MIMEType == "" {
		return DefaultMIMEType
	}
	return img.MIMEType
}

// Draft holds the text part of a listing.
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Tips        []string `json:"tips"`
}

func (d *Draft) clone() *Draft {
	if d == nil {
		return nil
	}
	c := *d
	c.Tips = append([]string{}, d.Tips...)
	return &c
}

// ImageKind tells a cover shot from a lifestyle shot.
type ImageKind int

const (
	ImageKindNeutral ImageKind = iota
	ImageKindLifestyle
)

func (k ImageKind) String() string {
	switch k {
	case ImageKindNeutral:
		return "neutral"
	case ImageKindLifestyle:
		return "lifestyle"
	default:
		return "unknown"
	}
}

// GeneratedImage is one slot of the gallery. URL is a data URL and is the
// only field that changes after the slot is created.
type GeneratedImage struct {
	ID   string
	URL  string
	Kind ImageKind
}
