// Package pagination computes table windows and the page navigation
// state machine shared by every paginated dashboard table.
package pagination

import "fmt"

// Window is the visible slice of a dataset: half-open [Start, End).
type Window struct {
	Start      int
	End        int
	TotalPages int
}

// Page computes the window for a 1-based page number over a dataset of
// the given length.
func Page(total, pageSize, pageNumber int) Window {
	if pageSize <= 0 || pageNumber < 1 {
		return Window{TotalPages: totalPages(total, pageSize)}
	}

	start := (pageNumber - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return Window{Start: start, End: end, TotalPages: totalPages(total, pageSize)}
}

// Slice returns the visible page of items along with its window.
func Slice[T any](items []T, pageSize, pageNumber int) ([]T, Window) {
	w := Page(len(items), pageSize, pageNumber)
	return items[w.Start:w.End], w
}

func totalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// State is the navigation state of one table. The only transitions are
// Next, Previous and Reset; a dataset change must Reset so a stale page
// number is never carried onto a different dataset.
type State struct {
	CurrentPage int
	PageSize    int
	TotalCount  int
}

func NewState(pageSize int) State {
	return State{CurrentPage: 1, PageSize: pageSize}
}

func (s *State) TotalPages() int {
	return totalPages(s.TotalCount, s.PageSize)
}

func (s *State) HasPrevious() bool {
	return s.CurrentPage > 1
}

func (s *State) HasNext() bool {
	return s.CurrentPage < s.TotalPages()
}

// Next advances one page; a no-op on the last page.
func (s *State) Next() bool {
	if !s.HasNext() {
		return false
	}
	s.CurrentPage++
	return true
}

// Previous retreats one page; a no-op on the first page.
func (s *State) Previous() bool {
	if !s.HasPrevious() {
		return false
	}
	s.CurrentPage--
	return true
}

// Reset rebinds the state to a new dataset and returns to page 1.
func (s *State) Reset(totalCount int) {
	s.TotalCount = totalCount
	s.CurrentPage = 1
}

func (s *State) Window() Window {
	return Page(s.TotalCount, s.PageSize, s.CurrentPage)
}

// RangeLabel renders the "Showing A-B of N" caption.
func (s *State) RangeLabel() string {
	w := s.Window()
	return fmt.Sprintf("Showing %d-%d of %d", w.Start+1, w.End, s.TotalCount)
}

// PageLabel renders the "Page X of Y" caption.
func (s *State) PageLabel() string {
	return fmt.Sprintf("Page %d of %d", s.CurrentPage, s.TotalPages())
}
