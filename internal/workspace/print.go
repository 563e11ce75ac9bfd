package workspace

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"
)

// SortObjects orders a listing in place. key is one of "name", "folder"
// (folders first, then by name), "date" (newest first), or "type". An
// unknown key sorts by name.
func SortObjects(objects []ObjectMeta, key string) {
	switch key {
	case "folder":
		sort.SliceStable(objects, func(i, j int) bool {
			if objects[i].IsFolder() != objects[j].IsFolder() {
				return objects[i].IsFolder()
			}
			return objects[i].Name < objects[j].Name
		})
	case "date":
		sort.SliceStable(objects, func(i, j int) bool {
			if objects[i].Created != objects[j].Created {
				return objects[i].Created > objects[j].Created
			}
			return objects[i].Name < objects[j].Name
		})
	case "type":
		sort.SliceStable(objects, func(i, j int) bool {
			if objects[i].Type != objects[j].Type {
				return objects[i].Type < objects[j].Type
			}
			return objects[i].Name < objects[j].Name
		})
	default:
		sort.SliceStable(objects, func(i, j int) bool {
			return objects[i].Name < objects[j].Name
		})
	}
}

var (
	folderColor = color.New(color.FgBlue, color.Bold)
	modelColor  = color.New(color.FgGreen)
)

// PrintList writes a directory style listing of the objects to w. Folders are
// shown in blue and model folders in green when w supports color.
func PrintList(w io.Writer, objects []ObjectMeta) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	for _, obj := range objects {
		name := obj.Name
		switch obj.Type {
		case "folder":
			name = folderColor.Sprint(name + "/")
		case "modelfolder":
			name = modelColor.Sprint(name + "/")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			obj.UserPermission, obj.GlobalPermission, obj.Owner, obj.Size, obj.Created, name)
	}
	tw.Flush()
}
