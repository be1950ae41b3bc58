package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/nexx/mediacenter/internal/hierarchy"
	"github.com/nexx/mediacenter/internal/locale"
	"github.com/nexx/mediacenter/internal/models"
	"github.com/nexx/mediacenter/internal/state"
)

// labels holds the column headers and status words per language.
var labels = map[locale.Language]map[string]string{
	locale.English: {
		"name": "NAME", "type": "TYPE", "size": "SIZE", "createdBy": "CREATED BY",
		"createdDate": "CREATED", "permission": "ACCESS", "id": "ID",
		"empty": "No files.", "page": "Page %d of %d (%d files, %d per page)",
		"locked": "locked", "root": "(root)",
	},
	locale.Persian: {
		"name": "نام", "type": "نوع", "size": "حجم", "createdBy": "ایجادکننده",
		"createdDate": "تاریخ ایجاد", "permission": "دسترسی", "id": "شناسه",
		"empty": "فایلی وجود ندارد.", "page": "صفحه %d از %d (%d فایل، %d در هر صفحه)",
		"locked": "قفل", "root": "(ریشه)",
	},
}

func label(s locale.Settings, key string) string {
	if m, ok := labels[s.Language]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return labels[locale.English][key]
}

// ordered reverses cells for right-to-left output so the first column
// ends up on the right.
func ordered(s locale.Settings, cells []string) []string {
	if !s.IsRTL() {
		return cells
	}
	out := make([]string, len(cells))
	for i, c := range cells {
		out[len(cells)-1-i] = c
	}
	return out
}

// sizeCell renders a size in either mode.
func sizeCell(sz models.Size) string {
	if sz.IsFormatted() {
		return sz.Label
	}
	return strconv.FormatInt(sz.Bytes, 10)
}

// renderRows prints the file table. New entries get a leading '*', the
// highlighted one a '>'.
func renderRows(w io.Writer, rows []models.FileListEntry, s locale.Settings, highlighted string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, label(s, "empty"))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{" ", label(s, "id"), label(s, "name"), label(s, "type"), label(s, "size"),
		label(s, "createdBy"), label(s, "createdDate"), label(s, "permission")}
	fmt.Fprintln(tw, strings.Join(ordered(s, header), "\t"))

	for _, e := range rows {
		mark := " "
		switch {
		case e.ID == highlighted && highlighted != "":
			mark = ">"
		case e.IsNew:
			mark = "*"
		}
		perm := string(e.Permission)
		if e.IsLocked {
			perm += " (" + label(s, "locked") + ")"
		}
		cells := []string{mark, e.ID, e.Name, e.Type, sizeCell(e.Size), e.CreatedBy, e.CreatedDate, perm}
		fmt.Fprintln(tw, strings.Join(ordered(s, cells), "\t"))
	}
	tw.Flush()
}

// renderPage prints the pagination footer.
func renderPage(w io.Writer, p state.PageInfo, s locale.Settings) {
	fmt.Fprintf(w, label(s, "page")+"\n", p.Current, p.TotalPages, p.TotalRecords, p.Size)
}

// renderTree prints the folder forest indented by depth. The selected
// folder is marked with '*'.
func renderTree(w io.Writer, roots []*hierarchy.Node, selected int, s locale.Settings) {
	if len(roots) == 0 {
		fmt.Fprintln(w, label(s, "root"))
		return
	}
	hierarchy.Walk(roots, func(n *hierarchy.Node, depth int) bool {
		mark := " "
		if n.Record.ID == selected {
			mark = "*"
		}
		line := fmt.Sprintf("%s%s %s [%d]", strings.Repeat("  ", depth), mark, n.Record.Name, n.Record.ID)
		if n.Record.PasswordRequired {
			line += " (" + label(s, "locked") + ")"
		}
		fmt.Fprintln(w, line)
		return true
	})
}

// formatBreadcrumb joins crumbs root first; right-to-left output puts
// the root on the right.
func formatBreadcrumb(crumbs []hierarchy.Crumb, s locale.Settings) string {
	if len(crumbs) == 0 {
		return label(s, "root")
	}
	names := make([]string, len(crumbs))
	for i, c := range crumbs {
		names[i] = c.Name
	}
	if s.IsRTL() {
		return strings.Join(ordered(s, names), " \\ ")
	}
	return strings.Join(names, " / ")
}
