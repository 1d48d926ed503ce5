package render

// RunStyle captures the inline run formatting of one block kind.
type RunStyle struct {
	Bold   bool
	Italic bool
	// Size is in half-points, as WordprocessingML counts it.
	Size  int
	Color string
}

const (
	HeadingColor = "1F2937"
	NameColor    = "111111"
	NameSize     = 32
	HeadingSize  = 24
	BodySize     = 20
)

type blockKind string

const (
	kindName    blockKind = "name"
	kindContact blockKind = "contact"
	kindHeading blockKind = "sectionHeading"
	kindRole    blockKind = "roleLine"
	kindMeta    blockKind = "meta"
	kindBody    blockKind = "body"
	kindBullet  blockKind = "bullet"
)

// StyleMap centralizes the formatting for key resume elements.
var StyleMap = map[blockKind]RunStyle{
	kindName: {
		Bold:  true,
		Size:  NameSize,
		Color: NameColor,
	},
	kindHeading: {
		Bold:  true,
		Size:  HeadingSize,
		Color: HeadingColor,
	},
	kindRole: {
		Bold: true,
		Size: BodySize,
	},
	kindMeta: {
		Italic: true,
		Size:   BodySize,
	},
	kindContact: {Size: BodySize},
	kindBody:    {Size: BodySize},
	kindBullet:  {Size: BodySize},
}

func styleOf(k blockKind) RunStyle {
	if s, ok := StyleMap[k]; ok {
		return s
	}
	return RunStyle{Size: BodySize}
}
