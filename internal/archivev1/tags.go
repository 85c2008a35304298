// Package archivev1 implements the tagged message-stream archive format:
// no global header, a depth-first sequence of FILE/DIR/POP frames
// mirroring the walker that produced them.
package archivev1

// Tag identifies a v1 message frame.
type Tag byte

const (
	TagFile Tag = 1
	TagDir  Tag = 2
	TagPop  Tag = 3
)

// MaxDepth bounds parent-stack nesting on decode, matching walk.MaxDepth.
const MaxDepth = 32
