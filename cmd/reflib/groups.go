package main

import (
	"fmt"
	"log/slog"

	"github.com/disiqueira/gotree/v3"
	"github.com/spf13/cobra"

	"github.com/reflib/reflib/internal/dispatch"
	"github.com/reflib/reflib/internal/groupview"
)

func newGroupsCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Show the group tree with hit counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadLibrary()
			if err != nil {
				return err
			}

			loop := dispatch.NewLoop()
			defer loop.Close()

			tree := groupview.NewTree(c, loop, slog.Default())
			defer tree.Close()
			tree.Wait()

			var rendered string
			tree.View(func(root *groupview.Node) {
				rendered = renderGroupTree(root, filter)
			})

			cmd.Print(rendered)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Only show groups whose name contains the text")

	return cmd
}

func renderGroupTree(root *groupview.Node, filter string) string {
	t := gotree.New(groupLabel(root))
	for _, child := range root.Children() {
		addGroupBranch(t, child, filter)
	}
	return t.Print()
}

// addGroupBranch adds the node and its subtree to the rendering. A node
// survives the filter when its own name matches or any descendant's does, so
// matching groups keep their ancestors visible.
func addGroupBranch(parent gotree.Tree, n *groupview.Node, filter string) {
	if !subtreeMatched(n, filter) {
		return
	}
	branch := parent.Add(groupLabel(n))
	for _, child := range n.Children() {
		addGroupBranch(branch, child, filter)
	}
}

func subtreeMatched(n *groupview.Node, filter string) bool {
	if n.MatchedBy(filter) {
		return true
	}
	for _, child := range n.Children() {
		if subtreeMatched(child, filter) {
			return true
		}
	}
	return false
}

func groupLabel(n *groupview.Node) string {
	return fmt.Sprintf("%s (%d)", n.DisplayName(), n.Hits())
}
