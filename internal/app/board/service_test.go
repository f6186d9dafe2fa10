package board

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
	"taskboard/internal/testutil"
	"taskboard/internal/utils"
)

// Tables owned by other packages that a board delete cascades into.
var cascadeTables = []string{
	`CREATE TABLE items (id INTEGER PRIMARY KEY, column_id INTEGER)`,
	`CREATE TABLE subtasks (id INTEGER PRIMARY KEY, item_id INTEGER)`,
	`CREATE TABLE item_comments (id INTEGER PRIMARY KEY, item_id INTEGER)`,
	`CREATE TABLE item_attachments (id INTEGER PRIMARY KEY, item_id INTEGER, object_name TEXT)`,
	`CREATE TABLE item_dependencies (id INTEGER PRIMARY KEY, from_item_id INTEGER, to_item_id INTEGER)`,
	`CREATE TABLE invitations (id INTEGER PRIMARY KEY, entity_kind TEXT, entity_id INTEGER)`,
	`CREATE TABLE chat_rooms (id INTEGER PRIMARY KEY, room_type TEXT, entity_id INTEGER)`,
	`CREATE TABLE chat_messages (id INTEGER PRIMARY KEY, room_id INTEGER)`,
}

type fakeStore struct {
	mu      sync.Mutex
	removed []string
}

func (s *fakeStore) Remove(_ context.Context, objectName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, objectName)
	return nil
}

func (s *fakeStore) Removed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.removed...)
}

type fixture struct {
	db    *gorm.DB
	repo  Repository
	svc   Service
	guard *access.Guard
	hub   *testutil.Recorder
	store *fakeStore
	bus   *utils.EventBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.SetupTestDB(t, &Board{}, &BoardMember{}, &Column{})
	for _, stmt := range cascadeTables {
		require.NoError(t, db.Exec(stmt).Error)
	}
	redisP, _ := testutil.SetupRedis(t)

	repo := NewRepository(db)
	guard := access.NewGuard(access.NewResolver(zap.NewNop(), repo, nil))
	hub := &testutil.Recorder{}
	store := &fakeStore{}
	bus := utils.NewEventBus()

	return &fixture{
		db:    db,
		repo:  repo,
		svc:   NewService(repo, guard, hub, store, redisP, bus, zap.NewNop()),
		guard: guard,
		hub:   hub,
		store: store,
		bus:   bus,
	}
}

func (f *fixture) addMember(t *testing.T, boardID, userID uint64, role access.Role) {
	t.Helper()
	require.NoError(t, f.db.Create(&BoardMember{BoardID: boardID, UserID: userID, Role: role.String()}).Error)
}

func TestCreateBoard_OwnerBecomesAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	board, err := f.svc.CreateBoard(ctx, 1, CreateBoardRequest{Name: "  Roadmap "})
	require.NoError(t, err)
	assert.Equal(t, "Roadmap", board.Name)
	assert.Equal(t, uint64(1), board.OwnerID)

	role, found, err := f.repo.MemberRole(ctx, board.ID, 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "admin", role)
	assert.Equal(t, access.RoleAdmin, f.guard.Resolve(ctx, 1, board.ID, access.KindBoard))
	assert.Equal(t, access.RoleNone, f.guard.Resolve(ctx, 2, board.ID, access.KindBoard))
}

func TestListBoards_CachedAndInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	boards, err := f.svc.ListBoards(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, boards)

	first, err := f.svc.CreateBoard(ctx, 1, CreateBoardRequest{Name: "One"})
	require.NoError(t, err)

	boards, err = f.svc.ListBoards(ctx, 1)
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, first.ID, boards[0].ID)
	assert.Equal(t, "admin", boards[0].Role)

	// A membership written behind the service's back is hidden by the cache
	// until something invalidates it.
	other, err := f.svc.CreateBoard(ctx, 2, CreateBoardRequest{Name: "Two"})
	require.NoError(t, err)
	f.addMember(t, other.ID, 1, access.RoleViewer)

	boards, err = f.svc.ListBoards(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, boards, 1)

	_, err = f.svc.UpdateBoard(ctx, 2, other.ID, UpdateBoardRequest{Name: strPtr("Two v2")})
	require.NoError(t, err)

	boards, err = f.svc.ListBoards(ctx, 1)
	require.NoError(t, err)
	require.Len(t, boards, 2)
	assert.Equal(t, "viewer", boards[1].Role)
	assert.Equal(t, "Two v2", boards[1].Name)
}

func TestGetBoard_PublicAndPrivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	private, err := f.svc.CreateBoard(ctx, 1, CreateBoardRequest{Name: "Private"})
	require.NoError(t, err)
	public, err := f.svc.CreateBoard(ctx, 1, CreateBoardRequest{Name: "Public", IsPublic: true})
	require.NoError(t, err)

	_, err = f.svc.GetBoard(ctx, 9, private.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	detail, err := f.svc.GetBoard(ctx, 9, public.ID)
	require.NoError(t, err)
	assert.Equal(t, access.RoleNone, detail.Role)

	_, err = f.svc.GetBoard(ctx, 1, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateBoard_ViewerForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	board, err := f.svc.CreateBoard(ctx, 1, CreateBoardRequest{Name: "Board"})
	require.NoError(t, err)
	f.addMember(t, board.ID, 2, access.RoleViewer)
	f.addMember(t, board.ID, 3, access.RoleEditor)

	_, err = f.svc.UpdateBoard(ctx, 2, board.ID, UpdateBoardRequest{Name: strPtr("x")})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Empty(t, f.hub.Named(EventBoardUpdated))

	updated, err := f.svc.UpdateBoard(ctx, 3, board.ID, UpdateBoardRequest{IsPublic: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, updated.IsPublic)
	assert.Equal(t, "Board", updated.Name)

	events := f.hub.Named(EventBoardUpdated)
	require.Len(t, events, 1)
	assert.Equal(t, access.Room(access.KindBoard, board.ID), events[0].Room)
}

func TestCreateColumn_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	board, err := f.svc.CreateBoard(ctx, 1, CreateBoardRequest{Name: "Board"})
	require.NoError(t, err)
	f.addMember(t, board.ID, 2, access.RoleEditor)

	// u3 has no membership at all.
	_, err = f.svc.CreateColumn(ctx, 3, board.ID, CreateColumnRequest{Title: "Todo"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.CreateColumn(ctx, 2, board.ID, CreateColumnRequest{Title: "Todo"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	columns, err := f.repo.ListColumns(ctx, board.ID)
	require.NoError(t, err)
	assert.Empty(t, columns)
	assert.Empty(t, f.hub.Named(EventColumnCreated))

	todo, err := f.svc.CreateColumn(ctx, 1, board.ID, CreateColumnRequest{Title: "Todo"})
	require.NoError(t, err)
	done, err := f.svc.CreateColumn(ctx, 1, board.ID, CreateColumnRequest{Title: "Done"})
	require.NoError(t, err)
	assert.Equal(t, 0, todo.Position)
	assert.Equal(t, 1, done.Position)
	assert.Len(t, f.hub.Named(EventColumnCreated), 2)
}

func TestUpdateAndDeleteColumn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	board, err := f.svc.CreateBoard(ctx, 1, CreateBoardRequest{Name: "Board"})
	require.NoError(t, err)
	f.addMember(t, board.ID, 2, access.RoleEditor)
	column, err := f.svc.CreateColumn(ctx, 1, board.ID, CreateColumnRequest{Title: "Todo"})
	require.NoError(t, err)

	updated, err := f.svc.UpdateColumn(ctx, 2, board.ID, column.ID, UpdateColumnRequest{Title: strPtr("Doing"), Order: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, "Doing", updated.Title)
	assert.Equal(t, 4, updated.Position)

	err = f.svc.DeleteColumn(ctx, 2, board.ID, column.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.UpdateColumn(ctx, 1, board.ID+1, column.ID, UpdateColumnRequest{Title: strPtr("x")})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, f.svc.DeleteColumn(ctx, 1, board.ID, column.ID))
	err = f.svc.DeleteColumn(ctx, 1, board.ID, column.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateMemberRole_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	board, err := f.svc.CreateBoard(ctx, 1, CreateBoardRequest{Name: "Board"})
	require.NoError(t, err)
	f.addMember(t, board.ID, 2, access.RoleViewer)
	f.addMember(t, board.ID, 3, access.RoleAdmin)

	_, err = f.svc.UpdateMemberRole(ctx, 2, board.ID, 3, access.RoleViewer)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.UpdateMemberRole(ctx, 3, board.ID, 3, access.RoleEditor)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.UpdateMemberRole(ctx, 3, board.ID, 1, access.RoleViewer)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.UpdateMemberRole(ctx, 1, board.ID, 42, access.RoleEditor)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	member, err := f.svc.UpdateMemberRole(ctx, 1, board.ID, 2, access.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, "editor", member.Role)
	assert.Equal(t, access.RoleEditor, f.guard.Resolve(ctx, 2, board.ID, access.KindBoard))

	member, err = f.svc.UpdateMemberRole(ctx, 1, board.ID, 3, access.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, "editor", member.Role)
	assert.Len(t, f.hub.Named(EventMemberUpdated), 2)
}

func TestCheckNotLastAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.svc.(*service)

	board, err := f.svc.CreateBoard(ctx, 1, CreateBoardRequest{Name: "Board"})
	require.NoError(t, err)

	owner, err := f.repo.GetMember(ctx, board.ID, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, s.checkNotLastAdmin(ctx, board.ID, owner), apperr.ErrValidation)

	f.addMember(t, board.ID, 2, access.RoleAdmin)
	assert.NoError(t, s.checkNotLastAdmin(ctx, board.ID, owner))
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	board, err := f.svc.CreateBoard(ctx, 1, CreateBoardRequest{Name: "Board"})
	require.NoError(t, err)
	f.addMember(t, board.ID, 2, access.RoleViewer)
	f.addMember(t, board.ID, 3, access.RoleEditor)

	// Viewers cannot remove others but can leave.
	err = f.svc.RemoveMember(ctx, 2, board.ID, 3)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	require.NoError(t, f.svc.RemoveMember(ctx, 2, board.ID, 2))
	assert.Equal(t, access.RoleNone, f.guard.Resolve(ctx, 2, board.ID, access.KindBoard))

	err = f.svc.RemoveMember(ctx, 1, board.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, f.svc.RemoveMember(ctx, 1, board.ID, 3))

	removed := f.hub.Named(EventMemberRemoved)
	require.Len(t, removed, 4)
	assert.Equal(t, access.Room(access.KindBoard, board.ID), removed[0].Room)
	assert.Equal(t, access.UserRoom(2), removed[1].Room)

	room := access.Room(access.KindBoard, board.ID)
	assert.Equal(t, []testutil.Eviction{
		{UserID: 2, Room: room},
		{UserID: 3, Room: room},
	}, f.hub.Evictions())
}

func TestDeleteColumn_RemovesAttachmentObjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	board, err := f.svc.CreateBoard(ctx, 1, CreateBoardRequest{Name: "Board"})
	require.NoError(t, err)
	todo, err := f.svc.CreateColumn(ctx, 1, board.ID, CreateColumnRequest{Title: "Todo"})
	require.NoError(t, err)
	done, err := f.svc.CreateColumn(ctx, 1, board.ID, CreateColumnRequest{Title: "Done"})
	require.NoError(t, err)
	require.NoError(t, f.db.Exec(`INSERT INTO items (id, column_id) VALUES (10, ?), (11, ?)`, todo.ID, done.ID).Error)
	require.NoError(t, f.db.Exec(`INSERT INTO item_attachments (item_id, object_name) VALUES (10, 'a.png'), (10, 'b.pdf'), (11, 'c.txt')`).Error)

	require.NoError(t, f.svc.DeleteColumn(ctx, 1, board.ID, todo.ID))
	assert.ElementsMatch(t, []string{"a.png", "b.pdf"}, f.store.Removed())

	var count int64
	require.NoError(t, f.db.Table("item_attachments").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDeleteBoard_Cascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	board, err := f.svc.CreateBoard(ctx, 1, CreateBoardRequest{Name: "Board"})
	require.NoError(t, err)
	keep, err := f.svc.CreateBoard(ctx, 1, CreateBoardRequest{Name: "Keep"})
	require.NoError(t, err)
	f.addMember(t, board.ID, 2, access.RoleEditor)

	column, err := f.svc.CreateColumn(ctx, 1, board.ID, CreateColumnRequest{Title: "Todo"})
	require.NoError(t, err)
	require.NoError(t, f.db.Exec(`INSERT INTO items (id, column_id) VALUES (10, ?)`, column.ID).Error)
	require.NoError(t, f.db.Exec(`INSERT INTO subtasks (item_id) VALUES (10)`).Error)
	require.NoError(t, f.db.Exec(`INSERT INTO item_attachments (item_id, object_name) VALUES (10, 'spec.pdf')`).Error)
	require.NoError(t, f.db.Exec(`INSERT INTO item_dependencies (from_item_id, to_item_id) VALUES (10, 10)`).Error)
	require.NoError(t, f.db.Exec(`INSERT INTO invitations (entity_kind, entity_id) VALUES ('board', ?), ('board', ?)`, board.ID, keep.ID).Error)

	err = f.svc.DeleteBoard(ctx, 2, board.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, f.svc.DeleteBoard(ctx, 1, board.ID))

	for table, want := range map[string]int64{
		"items":             0,
		"subtasks":          0,
		"item_attachments":  0,
		"item_dependencies": 0,
		"board_columns":     0,
		"invitations":       1,
	} {
		var count int64
		require.NoError(t, f.db.Table(table).Count(&count).Error)
		assert.Equal(t, want, count, table)
	}
	assert.Equal(t, access.RoleNone, f.guard.Resolve(ctx, 2, board.ID, access.KindBoard))
	assert.Equal(t, access.RoleNone, f.guard.Resolve(ctx, 1, board.ID, access.KindBoard))
	assert.Len(t, f.hub.Named(EventBoardDeleted), 1)
	assert.Equal(t, []string{"spec.pdf"}, f.store.Removed())
	assert.Equal(t, []testutil.Eviction{{Room: access.Room(access.KindBoard, board.ID)}}, f.hub.Evictions())

	boards, err := f.svc.ListBoards(ctx, 1)
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, keep.ID, boards[0].ID)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }
