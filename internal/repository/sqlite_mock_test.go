package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/abrezinsky/jackpot/internal/lottery"
	"github.com/abrezinsky/jackpot/internal/models"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Repository{db: db}, mock
}

var stateColumns = []string{
	"admin", "prize_pool", "carry_over", "last_draw_time", "base_interval", "fast_interval",
	"fast_mode_threshold", "fees_accumulated", "is_fast_mode", "is_active", "total_participants",
	"total_tickets", "draw_count", "rollover_streak", "last_seed", "ball_count", "winners", "schedule",
}

// ===== State =====

func TestLoadState_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM lottery_state").WillReturnError(errors.New("query error"))

	if _, err := repo.LoadState(context.Background()); err == nil || err == ErrNotFound {
		t.Errorf("expected query error, got %v", err)
	}
}

func TestLoadState_BadWinnersJSON(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows(stateColumns).
		AddRow("admin", 0, 0, 0, 0, 0, 0, 0, false, true, 0, 0, 0, 0, 0, 0, "{not json", `{"name":"canonical"}`)
	mock.ExpectQuery("SELECT (.+) FROM lottery_state").WillReturnRows(rows)

	if _, err := repo.LoadState(context.Background()); err == nil {
		t.Error("expected decode error for malformed winners")
	}
}

func TestLoadState_EntriesQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows(stateColumns).
		AddRow("admin", 0, 0, 0, 0, 0, 0, 0, false, true, 0, 0, 0, 0, 0, 0, `{"main":""}`, `{"name":"canonical"}`)
	mock.ExpectQuery("SELECT (.+) FROM lottery_state").WillReturnRows(rows)
	mock.ExpectQuery("SELECT (.+) FROM entries").WillReturnError(errors.New("entries error"))

	if _, err := repo.LoadState(context.Background()); err == nil {
		t.Error("expected entries query error")
	}
}

func TestSaveState_BeginError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin().WillReturnError(errors.New("begin error"))

	if err := repo.SaveState(context.Background(), lottery.State{}); err == nil {
		t.Error("expected begin error")
	}
}

func TestSaveState_WriteErrorRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lottery_state").WillReturnError(errors.New("write error"))
	mock.ExpectRollback()

	if err := repo.SaveState(context.Background(), lottery.State{}); err == nil {
		t.Error("expected write error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSaveState_DeleteEntriesError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lottery_state").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM entries").WillReturnError(errors.New("delete error"))
	mock.ExpectRollback()

	if err := repo.SaveState(context.Background(), lottery.State{}); err == nil {
		t.Error("expected delete error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSaveState_CommitError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lottery_state").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM entries").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit().WillReturnError(errors.New("commit error"))

	if err := repo.SaveState(context.Background(), lottery.State{}); err == nil {
		t.Error("expected commit error")
	}
}

func TestSaveEntry_ContributionInsertError(t *testing.T) {
	repo, mock := newMockRepo(t)
	s := lottery.State{Entries: []lottery.Entry{{Participant: "alice", Tickets: 1, Contribution: 2_000}}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lottery_state").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO entries").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO contributions").WillReturnError(errors.New("insert error"))
	mock.ExpectRollback()

	err := repo.SaveEntry(context.Background(), s, models.Contribution{Participant: "alice", Amount: 2_000, Tickets: 1})
	if err == nil {
		t.Error("expected insert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSaveDraw_InsertError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lottery_state").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO draws").WillReturnError(errors.New("insert error"))
	mock.ExpectRollback()

	if err := repo.SaveDraw(context.Background(), lottery.State{}, models.DrawRecord{ID: "d1"}); err == nil {
		t.Error("expected insert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSavePayout_PrepareError(t *testing.T) {
	repo, mock := newMockRepo(t)
	s := lottery.State{Entries: []lottery.Entry{{Participant: "alice", Tickets: 1}}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lottery_state").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM entries").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("INSERT INTO entries").WillReturnError(errors.New("prepare error"))
	mock.ExpectRollback()

	if err := repo.SavePayout(context.Background(), s, models.PayoutRecord{ID: "p1"}); err == nil {
		t.Error("expected prepare error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// ===== History =====

func TestListDraws_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM draws").WillReturnError(errors.New("query error"))

	if _, err := repo.ListDraws(context.Background(), 10, 0); err == nil {
		t.Error("expected query error")
	}
}

func TestListDraws_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "draw_number", "slot", "seed", "ball_count", "outcome", "main_winner",
		"minor_winners", "participants", "tickets", "prize_pool", "extension", "next_draw_at", "drawn_at"}).
		AddRow("d1", "not-a-number", 1, 1, 1, "payout", nil, nil, 9, 9, 0, 0, 0, 0)
	mock.ExpectQuery("SELECT (.+) FROM draws").WillReturnRows(rows)

	if _, err := repo.ListDraws(context.Background(), 10, 0); err == nil {
		t.Error("expected scan error")
	}
}

func TestGetDraw_BadMinorWinners(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "draw_number", "slot", "seed", "ball_count", "outcome", "main_winner",
		"minor_winners", "participants", "tickets", "prize_pool", "extension", "next_draw_at", "drawn_at"}).
		AddRow("d1", 1, 1, 1, 1, "payout", "p1", "[broken", 9, 9, 0, 0, 0, 0)
	mock.ExpectQuery("SELECT (.+) FROM draws WHERE id").WithArgs("d1").WillReturnRows(rows)

	if _, err := repo.GetDraw(context.Background(), "d1"); err == nil {
		t.Error("expected decode error")
	}
}

func TestCountDraws_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT COUNT.*FROM draws").WillReturnError(errors.New("query error"))

	if _, err := repo.CountDraws(context.Background()); err == nil {
		t.Error("expected query error")
	}
}

func TestListPayouts_BadDistribution(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "draw_number", "seed", "schedule", "distribution", "payments", "paid_at"}).
		AddRow("p1", 1, 7, "canonical", "nope", "[]", 0)
	mock.ExpectQuery("SELECT (.+) FROM payouts").WillReturnRows(rows)

	if _, err := repo.ListPayouts(context.Background(), 10, 0); err == nil {
		t.Error("expected decode error")
	}
}

func TestListContributions_RowsError(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "participant", "amount", "tickets", "draw_number", "created_at"}).
		AddRow(1, "alice", 2_000, 1, 0, 0).
		RowError(0, errors.New("row error"))
	mock.ExpectQuery("SELECT (.+) FROM contributions").WillReturnRows(rows)

	if _, err := repo.ListContributions(context.Background(), "alice", 10); err == nil {
		t.Error("expected row error")
	}
}

// ===== Settings =====

func TestGetSetting_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT value FROM settings").WillReturnError(errors.New("query error"))

	if _, err := repo.GetSetting(context.Background(), "k"); err == nil || err == ErrNotFound {
		t.Errorf("expected query error, got %v", err)
	}
}

func TestSetSetting_ExecError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT OR REPLACE INTO settings").WillReturnError(errors.New("exec error"))

	if err := repo.SetSetting(context.Background(), "k", "v"); err == nil {
		t.Error("expected exec error")
	}
}
