package imap

import (
	"fmt"
	"strings"

	"github.com/emersion/go-imap"
)

// FolderNode is one node of the server's folder hierarchy.
type FolderNode struct {
	Name       string
	Delimiter  string
	Attributes []string
	Children   []*FolderNode
}

// isSelectable reports whether the node is a real mailbox rather than a
// container that only exists to hold children.
func (n *FolderNode) isSelectable() bool {
	for _, attr := range n.Attributes {
		if strings.EqualFold(attr, imap.NoSelectAttr) {
			return false
		}
	}
	return true
}

// Flatten turns a folder hierarchy into an ordered list of selectable
// mailbox paths. Traversal is depth-first, parent before children, siblings
// in their original order. Non-selectable nodes contribute no path of their
// own but their selectable descendants are still included. Paths join parent
// and child names with the child node's delimiter.
func Flatten(nodes []*FolderNode) []string {
	paths := make([]string, 0, len(nodes))
	for _, node := range nodes {
		paths = appendFlattened(paths, "", node)
	}
	return paths
}

func appendFlattened(paths []string, prefix string, node *FolderNode) []string {
	path := node.Name
	if prefix != "" {
		path = prefix + node.Delimiter + node.Name
	}

	if node.isSelectable() {
		paths = append(paths, path)
	}

	for _, child := range node.Children {
		paths = appendFlattened(paths, path, child)
	}

	return paths
}

// BuildFolderTree reconstructs the hierarchy from a LIST response. Servers
// report full paths, so each path is split on its delimiter and inserted
// level by level. Levels that are only implied by a deeper path are created
// as non-selectable until the server lists them explicitly.
func BuildFolderTree(infos []*imap.MailboxInfo) []*FolderNode {
	var roots []*FolderNode

	for _, info := range infos {
		segments := []string{info.Name}
		if info.Delimiter != "" {
			segments = strings.Split(info.Name, info.Delimiter)
		}

		siblings := &roots
		var node *FolderNode
		for _, segment := range segments {
			node = findNode(*siblings, segment)
			if node == nil {
				node = &FolderNode{
					Name:       segment,
					Delimiter:  info.Delimiter,
					Attributes: []string{imap.NoSelectAttr},
				}
				*siblings = append(*siblings, node)
			}
			siblings = &node.Children
		}

		// The last segment is the mailbox the server actually listed;
		// its real attributes replace any implied ones.
		node.Attributes = append([]string(nil), info.Attributes...)
	}

	return roots
}

func findNode(nodes []*FolderNode, name string) *FolderNode {
	for _, node := range nodes {
		if node.Name == name {
			return node
		}
	}
	return nil
}

// ListFolderPaths enumerates all selectable mailbox paths on the server.
func ListFolderPaths(s *Session) ([]string, error) {
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- s.Client().List("", "*", mailboxes)
	}()

	var infos []*imap.MailboxInfo
	for m := range mailboxes {
		infos = append(infos, m)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return Flatten(BuildFolderTree(infos)), nil
}
