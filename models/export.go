package models

// ExportNode is one node of an exported thread forest: ordered siblings plus
// children, ready for serialization. A node with Seq <= 0 is a pure grouping
// wrapper for its children and carries no identity of its own; callers must
// never treat such a node as an addressable message.
type ExportNode struct {
	Folder   string       `json:"folder,omitempty"`
	Seq      int64        `json:"seq"`
	UID      int64        `json:"uid,omitempty"`
	Children []ExportNode `json:"children,omitempty"`
}
