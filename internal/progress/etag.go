package progress

import (
	"cmp"
	"encoding/hex"
	"fmt"
	"slices"

	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-learn/internal/course"
)

// ETag fingerprints a snapshot's module graph and records so clients can skip
// refetching an unchanged snapshot. Order of records does not matter.
func ETag(modules []course.Module, records []Record) string {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b Record) int {
		return cmp.Compare(a.LessonID, b.LessonID)
	})

	h, _ := blake2b.New256(nil)
	for _, m := range modules {
		fmt.Fprintf(h, "m|%s|%d|%t\n", m.ID, m.ModuleOrder, m.IsLocked)
		for _, l := range m.Lessons {
			fmt.Fprintf(h, "l|%s|%d|%s|%s|%s\n", l.ID, l.LessonOrder, l.LessonType, l.Title, l.QuizID)
		}
	}
	for _, r := range sorted {
		fmt.Fprintf(h, "r|%s|%s|%d|%d|%d\n", r.LessonID, r.Status, r.CompletionPercentage, r.Version, r.LastAccessedAt.UnixNano())
	}
	return `"` + hex.EncodeToString(h.Sum(nil)[:16]) + `"`
}
