package service

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bascanada/loggate/pkg/errs"
	"github.com/bascanada/loggate/pkg/ty"
)

// Board is an in-memory scratchpad for one investigation.
type Board struct {
	ID        string    `json:"boardId"`
	Name      string    `json:"name"`
	Findings  []ty.MI   `json:"findings"`
	CreatedAt time.Time `json:"createdAt"`
}

// MemoryService keeps investigation boards for assistant-led debugging
// sessions. Boards live only as long as the process.
type MemoryService struct {
	mu     sync.Mutex
	boards map[string]*Board
}

func NewMemoryService() *MemoryService {
	return &MemoryService{boards: map[string]*Board{}}
}

// CreateBoard opens a new board and returns it.
func (s *MemoryService) CreateBoard(name string) *Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	board := &Board{
		ID:        uuid.NewString(),
		Name:      name,
		Findings:  []ty.MI{},
		CreatedAt: time.Now(),
	}
	s.boards[board.ID] = board
	return board
}

// AddFinding appends a finding, keeping findings with timestamps in
// chronological order.
func (s *MemoryService) AddFinding(boardID string, finding ty.MI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	board, ok := s.boards[boardID]
	if !ok {
		return &errs.InvalidArgumentError{Message: "memory board not found: " + boardID}
	}
	board.Findings = append(board.Findings, finding)
	if _, hasTS := finding["timestamp"]; hasTS {
		sort.SliceStable(board.Findings, func(i, j int) bool {
			return board.Findings[i].GetString("timestamp") < board.Findings[j].GetString("timestamp")
		})
	}
	return nil
}

// GetBoard returns one board with its findings.
func (s *MemoryService) GetBoard(boardID string) (*Board, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	board, ok := s.boards[boardID]
	if !ok {
		return nil, false
	}
	copied := *board
	copied.Findings = append([]ty.MI{}, board.Findings...)
	return &copied, true
}

// ClearBoard drops one board, reporting whether it existed.
func (s *MemoryService) ClearBoard(boardID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.boards[boardID]
	delete(s.boards, boardID)
	return ok
}

// BoardSummary identifies one board without its findings.
type BoardSummary struct {
	ID   string `json:"boardId"`
	Name string `json:"name"`
}

// ListBoards returns a lightweight summary of all open boards.
func (s *MemoryService) ListBoards() []BoardSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]BoardSummary, 0, len(s.boards))
	for _, b := range s.boards {
		out = append(out, BoardSummary{ID: b.ID, Name: b.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
