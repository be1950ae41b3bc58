package hierarchy

import "github.com/nexx/mediacenter/internal/models"

// The patch helpers apply a confirmed mutation to the flat listing.
// They always return a fresh slice; callers rebuild the forest from it.

// Rename sets the name of every record with the given id.
func Rename(records []models.FolderRecord, id int, name string) []models.FolderRecord {
	out := make([]models.FolderRecord, len(records))
	copy(out, records)
	for i := range out {
		if out[i].ID == id {
			out[i].Name = name
		}
	}
	return out
}

// Remove drops every record with the given id. Its children become
// orphans and disappear from the rebuilt forest.
func Remove(records []models.FolderRecord, id int) []models.FolderRecord {
	out := make([]models.FolderRecord, 0, len(records))
	for _, r := range records {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

// Add appends a newly created folder.
func Add(records []models.FolderRecord, rec models.FolderRecord) []models.FolderRecord {
	out := make([]models.FolderRecord, len(records), len(records)+1)
	copy(out, records)
	return append(out, rec)
}
