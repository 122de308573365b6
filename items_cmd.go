package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fjelby/sayboard/internal/store"
)

var (
	addParent string
	addFolder bool

	itemsCmd = &cobra.Command{
		Use:   "items",
		Short: "Manage the snippet tree",
	}

	itemsLsCmd = &cobra.Command{
		Use:   "ls [PATH]",
		Short: "List a folder's contents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := openApp(log.Default())
			if err != nil {
				return err
			}
			defer a.close()

			var folder *store.Item
			if len(args) == 1 && args[0] != "" && args[0] != "/" {
				folder, err = a.resolveItem(args[0])
				if err != nil {
					return err
				}
				if !folder.IsFolder {
					return fmt.Errorf("%s is not a folder", args[0])
				}
			}

			var items []store.Item
			var qerr error
			if err := a.persist.SubmitWait(func() {
				if folder == nil {
					items, qerr = a.store.RootItems()
				} else {
					items, qerr = a.store.ChildrenOf(folder.ID)
				}
			}); err != nil {
				return err
			}
			if qerr != nil {
				return qerr
			}

			for _, it := range items {
				marker := " "
				if it.IsFolder {
					marker = "/"
				}
				fmt.Printf("%s%s\t%s\n", it.Name, marker, humanize.Time(it.CreatedAt))
			}
			return nil
		},
	}

	itemsAddCmd = &cobra.Command{
		Use:   "add NAME [TEXT]",
		Short: "Add a snippet or folder",
		Example: "sayboard items add --folder greetings\n" +
			"sayboard items add --in greetings hello \"Hello there!\"",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			if addFolder && len(args) == 2 {
				return fmt.Errorf("a folder carries no text")
			}
			if !addFolder && len(args) < 2 {
				return fmt.Errorf("a snippet needs text to speak")
			}

			a, err := openApp(log.Default())
			if err != nil {
				return err
			}
			defer a.close()

			it := store.Item{Name: args[0], IsFolder: addFolder}
			if len(args) == 2 {
				it.Text = args[1]
			}
			if addParent != "" {
				parent, err := a.resolveItem(addParent)
				if err != nil {
					return err
				}
				if !parent.IsFolder {
					return fmt.Errorf("%s is not a folder", addParent)
				}
				it.ParentID = &parent.ID
			}

			var id int64
			var qerr error
			if err := a.persist.SubmitWait(func() {
				id, qerr = a.store.InsertItem(it)
			}); err != nil {
				return err
			}
			if qerr != nil {
				return qerr
			}
			a.log.Debug("inserted item", "id", id, "name", it.Name)
			return nil
		},
	}

	itemsRmCmd = &cobra.Command{
		Use:   "rm PATH",
		Short: "Remove an item and, for folders, everything inside",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := openApp(log.Default())
			if err != nil {
				return err
			}
			defer a.close()

			it, err := a.resolveItem(args[0])
			if err != nil {
				return err
			}

			var qerr error
			if err := a.persist.SubmitWait(func() {
				qerr = a.store.DeleteItems(it.ID)
			}); err != nil {
				return err
			}
			return qerr
		},
	}

	itemsSayCmd = &cobra.Command{
		Use:   "say PATH",
		Short: "Speak a snippet aloud",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := openApp(log.Default())
			if err != nil {
				return err
			}
			defer a.close()

			it, err := a.resolveItem(args[0])
			if err != nil {
				return err
			}
			if it.IsFolder {
				return fmt.Errorf("%s is a folder; pick a snippet", args[0])
			}
			return a.speakText(it.Text)
		},
	}
)

// resolveItem walks a slash-separated name path down the tree. Each level
// is read through the persistence executor, so a path lookup sees a
// consistent snapshot relative to other mutations.
func (a *app) resolveItem(path string) (*store.Item, error) {
	var cur *store.Item
	for _, name := range strings.Split(strings.Trim(path, "/"), "/") {
		if name == "" {
			continue
		}
		var siblings []store.Item
		var qerr error
		if err := a.persist.SubmitWait(func() {
			if cur == nil {
				siblings, qerr = a.store.RootItems()
			} else {
				siblings, qerr = a.store.ChildrenOf(cur.ID)
			}
		}); err != nil {
			return nil, err
		}
		if qerr != nil {
			return nil, qerr
		}

		var next *store.Item
		for i := range siblings {
			if siblings[i].Name == name {
				next = &siblings[i]
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("no item named %q in %s", name, pathPrefix(path, name))
		}
		cur = next
	}
	if cur == nil {
		return nil, fmt.Errorf("empty item path")
	}
	return cur, nil
}

func pathPrefix(path, upTo string) string {
	idx := strings.Index(path, upTo)
	if idx <= 0 {
		return "/"
	}
	return strings.Trim(path[:idx], "/")
}

func init() {
	itemsAddCmd.Flags().StringVar(&addParent, "in", "", "parent folder path")
	itemsAddCmd.Flags().BoolVar(&addFolder, "folder", false, "create a folder instead of a snippet")
	itemsCmd.AddCommand(itemsLsCmd, itemsAddCmd, itemsRmCmd, itemsSayCmd)
}
