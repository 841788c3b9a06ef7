package messaging

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"devmatch/internal/errs"
	"devmatch/internal/model"
	"devmatch/internal/repository"
)

type fakeRepo struct {
	messages map[int]*model.Message
	nextID   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{messages: map[int]*model.Message{}, nextID: 1}
}

func (f *fakeRepo) Insert(_ context.Context, m *model.Message) (int, error) {
	m.ID = f.nextID
	f.nextID++
	m.CreatedAt = time.Now()
	cp := *m
	f.messages[m.ID] = &cp
	return m.ID, nil
}

func (f *fakeRepo) FindByID(_ context.Context, id int) (*model.Message, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *m
	return &cp, nil
}

func (f *fakeRepo) ListReplyIDs(_ context.Context, parentID int) ([]int, error) {
	var ids []int
	for _, m := range f.messages {
		if m.ParentMessageID != nil && *m.ParentMessageID == parentID {
			ids = append(ids, m.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (f *fakeRepo) Update(_ context.Context, m *model.Message) error {
	if _, ok := f.messages[m.ID]; !ok {
		return repository.ErrNoRowsAffected
	}
	cp := *m
	f.messages[m.ID] = &cp
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int) error {
	if _, ok := f.messages[id]; !ok {
		return repository.ErrNoRowsAffected
	}
	delete(f.messages, id)
	return nil
}

func (f *fakeRepo) MarkRead(_ context.Context, id int) error {
	m, ok := f.messages[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if !m.IsRead {
		now := time.Now()
		m.IsRead = true
		m.ReadAt = &now
	}
	return nil
}

func (f *fakeRepo) Conversation(_ context.Context, userA, userB int, projectID *int) ([]model.Message, error) {
	var out []model.Message
	for _, m := range f.messages {
		between := (m.SenderID == userA && m.RecipientID == userB) ||
			(m.SenderID == userB && m.RecipientID == userA)
		if !between || m.IsArchived {
			continue
		}
		if projectID != nil && (m.ProjectID == nil || *m.ProjectID != *projectID) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) Inbox(_ context.Context, userID, skip, limit int) ([]model.Message, error) {
	var out []model.Message
	for _, m := range f.messages {
		if m.RecipientID == userID && m.ParentMessageID == nil && !m.IsArchived {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) CountInbox(_ context.Context, userID int) (int, error) {
	count := 0
	for _, m := range f.messages {
		if m.RecipientID == userID && m.ParentMessageID == nil && !m.IsArchived {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) UnreadCount(_ context.Context, userID int) (int, error) {
	count := 0
	for _, m := range f.messages {
		if m.RecipientID == userID && !m.IsRead && !m.IsArchived {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) ListForUser(_ context.Context, userID int, _ model.MessageFilters, skip, limit int) ([]model.Message, error) {
	var out []model.Message
	for _, m := range f.messages {
		if m.SenderID == userID || m.RecipientID == userID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) CountForUser(_ context.Context, userID int, _ model.MessageFilters) (int, error) {
	count := 0
	for _, m := range f.messages {
		if m.SenderID == userID || m.RecipientID == userID {
			count++
		}
	}
	return count, nil
}

func newTestService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	return NewService(repo, nil, zap.NewNop()), repo
}

func validSend(recipient int) SendInput {
	return SendInput{
		RecipientID: recipient,
		Subject:     "Question about the timeline",
		Content:     "Could you share an updated delivery estimate for the first milestone?",
	}
}

func TestSendDefaults(t *testing.T) {
	svc, _ := newTestService()

	m, err := svc.Send(context.Background(), 1, validSend(2))
	require.NoError(t, err)

	assert.Equal(t, model.MessageTypeGeneral, m.MessageType)
	assert.Equal(t, model.MessagePriorityNormal, m.Priority)
	assert.False(t, m.IsRead)
	assert.False(t, m.IsSystemMessage)
}

func TestSendValidation(t *testing.T) {
	svc, _ := newTestService()

	in := validSend(2)
	in.Subject = "hey"
	in.Content = "too short"
	_, err := svc.Send(context.Background(), 1, in)
	ve, ok := errs.AsValidation(err)
	require.True(t, ok)
	assert.Len(t, ve.Fields, 2)
}

func TestSendToSelf(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Send(context.Background(), 1, validSend(1))
	_, ok := errs.AsValidation(err)
	assert.True(t, ok)
}

func TestSendOversizedContent(t *testing.T) {
	svc, _ := newTestService()

	in := validSend(2)
	in.Content = strings.Repeat("x", 5001)
	_, err := svc.Send(context.Background(), 1, in)
	_, ok := errs.AsValidation(err)
	assert.True(t, ok)
}

func TestReplyInheritsThread(t *testing.T) {
	svc, _ := newTestService()

	projectID := 5
	in := validSend(2)
	in.ProjectID = &projectID
	in.MessageType = model.MessageTypeProjectInquiry
	parent, err := svc.Send(context.Background(), 1, in)
	require.NoError(t, err)

	reply, err := svc.Reply(context.Background(), parent.ID, 2, ReplyInput{
		Content: "The first milestone lands at the end of next week.",
	})
	require.NoError(t, err)

	assert.Equal(t, "Re: "+parent.Subject, reply.Subject)
	assert.Equal(t, 1, reply.RecipientID)
	require.NotNil(t, reply.ProjectID)
	assert.Equal(t, projectID, *reply.ProjectID)
	assert.Equal(t, model.MessageTypeProjectInquiry, reply.MessageType)
	require.NotNil(t, reply.ParentMessageID)
	assert.Equal(t, parent.ID, *reply.ParentMessageID)
}

func TestReplyParticipantsOnly(t *testing.T) {
	svc, _ := newTestService()

	parent, err := svc.Send(context.Background(), 1, validSend(2))
	require.NoError(t, err)

	_, err = svc.Reply(context.Background(), parent.ID, 3, ReplyInput{
		Content: "I should not be able to join this thread at all.",
	})
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestGetMarksReadForRecipient(t *testing.T) {
	svc, repo := newTestService()

	parent, err := svc.Send(context.Background(), 1, validSend(2))
	require.NoError(t, err)
	_, err = svc.Reply(context.Background(), parent.ID, 2, ReplyInput{
		Content: "Replying so the thread has a derived child entry.",
	})
	require.NoError(t, err)

	// sender fetch leaves it unread
	m, err := svc.Get(context.Background(), parent.ID, 1)
	require.NoError(t, err)
	assert.False(t, m.IsRead)
	assert.Len(t, m.Replies, 1)

	// recipient fetch marks it read
	m, err = svc.Get(context.Background(), parent.ID, 2)
	require.NoError(t, err)
	assert.True(t, m.IsRead)
	assert.NotNil(t, m.ReadAt)
	assert.True(t, repo.messages[parent.ID].IsRead)

	_, err = svc.Get(context.Background(), parent.ID, 3)
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestMarkReadIdempotent(t *testing.T) {
	svc, repo := newTestService()

	m, err := svc.Send(context.Background(), 1, validSend(2))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.MarkRead(context.Background(), m.ID, 1), errs.ErrForbidden)

	require.NoError(t, svc.MarkRead(context.Background(), m.ID, 2))
	first := repo.messages[m.ID].ReadAt
	require.NotNil(t, first)

	require.NoError(t, svc.MarkRead(context.Background(), m.ID, 2))
	assert.Equal(t, first, repo.messages[m.ID].ReadAt)
}

func TestUpdateSenderOnly(t *testing.T) {
	svc, _ := newTestService()

	m, err := svc.Send(context.Background(), 1, validSend(2))
	require.NoError(t, err)

	content := "Updated content with enough characters to pass validation."
	_, err = svc.Update(context.Background(), m.ID, 2, UpdateInput{Content: &content})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	updated, err := svc.Update(context.Background(), m.ID, 1, UpdateInput{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, content, updated.Content)
}

func TestDeleteParticipantsOnly(t *testing.T) {
	svc, _ := newTestService()

	m, err := svc.Send(context.Background(), 1, validSend(2))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(context.Background(), m.ID, 3), errs.ErrForbidden)
	assert.NoError(t, svc.Delete(context.Background(), m.ID, 2))
	assert.ErrorIs(t, svc.Delete(context.Background(), m.ID, 2), errs.ErrNotFound)
}

func TestConversation(t *testing.T) {
	svc, repo := newTestService()

	projectID := 5
	scoped := validSend(2)
	scoped.ProjectID = &projectID

	first, err := svc.Send(context.Background(), 1, scoped)
	require.NoError(t, err)
	second, err := svc.Reply(context.Background(), first.ID, 2, ReplyInput{
		Content: "The first milestone lands at the end of next week.",
	})
	require.NoError(t, err)
	unscoped, err := svc.Send(context.Background(), 1, validSend(2))
	require.NoError(t, err)
	// third party traffic never shows up
	_, err = svc.Send(context.Background(), 1, validSend(3))
	require.NoError(t, err)
	archived, err := svc.Send(context.Background(), 2, validSend(1))
	require.NoError(t, err)
	repo.messages[archived.ID].IsArchived = true

	messages, err := svc.Conversation(context.Background(), 1, 2, nil)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	// oldest first, both directions, archived dropped
	assert.Equal(t, first.ID, messages[0].ID)
	assert.Equal(t, second.ID, messages[1].ID)
	assert.Equal(t, 2, messages[1].SenderID)
	assert.Equal(t, unscoped.ID, messages[2].ID)

	messages, err = svc.Conversation(context.Background(), 2, 1, &projectID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, first.ID, messages[0].ID)
	assert.Equal(t, second.ID, messages[1].ID)
}

func TestInboxPagination(t *testing.T) {
	svc, _ := newTestService()

	for i := 0; i < 5; i++ {
		_, err := svc.Send(context.Background(), 1, validSend(2))
		require.NoError(t, err)
	}

	messages, pagination, err := svc.Inbox(context.Background(), 2, 1, 2)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
	assert.Equal(t, 5, pagination.TotalCount)
	assert.Equal(t, 3, pagination.TotalPages)
	assert.True(t, pagination.HasNext)
	assert.False(t, pagination.HasPrev)

	messages, pagination, err = svc.Inbox(context.Background(), 2, 3, 2)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
	assert.False(t, pagination.HasNext)
	assert.True(t, pagination.HasPrev)
}

func TestUnreadCount(t *testing.T) {
	svc, _ := newTestService()

	a, err := svc.Send(context.Background(), 1, validSend(2))
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), 1, validSend(2))
	require.NoError(t, err)

	count, err := svc.UnreadCount(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, svc.MarkRead(context.Background(), a.ID, 2))
	count, err = svc.UnreadCount(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSystemMessages(t *testing.T) {
	svc, repo := newTestService()

	dev := 20
	p := &model.Project{ID: 3, OwnerID: 10, Title: "Inventory dashboard", AssignedDeveloperID: &dev}
	a := &model.Application{ID: 7, ProjectID: 3, DeveloperID: dev}

	require.NoError(t, svc.ProjectAssigned(context.Background(), p, a))
	require.NoError(t, svc.ProjectCompleted(context.Background(), p))

	var types []string
	for _, m := range repo.messages {
		assert.True(t, m.IsSystemMessage)
		assert.Equal(t, dev, m.RecipientID)
		types = append(types, m.SystemMessageType)
	}
	sort.Strings(types)
	assert.Equal(t, []string{model.SystemMessageProjectAssigned, model.SystemMessageProjectCompleted}, types)
}

func TestProjectCompletedWithoutDeveloper(t *testing.T) {
	svc, repo := newTestService()

	p := &model.Project{ID: 3, OwnerID: 10, Title: "Inventory dashboard"}
	require.NoError(t, svc.ProjectCompleted(context.Background(), p))
	assert.Empty(t, repo.messages)
}
