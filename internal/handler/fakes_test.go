package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/kisara-app/kisara-api/internal/auth"
	"github.com/kisara-app/kisara-api/internal/middleware"
	"github.com/kisara-app/kisara-api/internal/model"
	"github.com/kisara-app/kisara-api/internal/queue"
	"github.com/kisara-app/kisara-api/internal/repository"
)

// ----- in-memory stores -----

type fakeUsers struct {
	byID map[string]model.User
	seq  int
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]model.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByLinkID(_ context.Context, linkID string) (model.User, error) {
	for _, u := range f.byID {
		if u.LinkID == linkID {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) FindOrCreate(_ context.Context, email, name, picture string) (model.User, error) {
	for id, u := range f.byID {
		if u.Email == email {
			u.Name = name
			u.ProfileURL = picture
			f.byID[id] = u
			return u, nil
		}
	}
	f.seq++
	u := model.User{
		ID:         fmt.Sprintf("u%d", f.seq),
		Email:      email,
		Name:       name,
		LinkID:     fmt.Sprintf("link%03d", f.seq),
		Role:       model.RoleUser,
		ProfileURL: picture,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) UpdateName(_ context.Context, id, name string) error {
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Name = name
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) Count(_ context.Context) (int64, error) {
	return int64(len(f.byID)), nil
}

type fakeReplies struct {
	byID map[string]model.ReplyComment
	seq  int
}

func newFakeReplies() *fakeReplies {
	return &fakeReplies{byID: map[string]model.ReplyComment{}}
}

func (f *fakeReplies) Create(_ context.Context, commentID, content string) (model.ReplyComment, error) {
	f.seq++
	r := model.ReplyComment{
		ID:             fmt.Sprintf("r%d", f.seq),
		CommentID:      commentID,
		MessageContent: content,
		CreatedAt:      time.Now().UTC().Add(time.Duration(f.seq) * time.Millisecond),
		UpdatedAt:      time.Now().UTC(),
	}
	f.byID[r.ID] = r
	return r, nil
}

func (f *fakeReplies) GetByID(_ context.Context, id string) (model.ReplyComment, error) {
	r, ok := f.byID[id]
	if !ok {
		return model.ReplyComment{}, repository.ErrNotFound
	}
	return r, nil
}

func (f *fakeReplies) ListByComment(_ context.Context, commentID, sortBy string, page, limit int) ([]model.ReplyComment, int64, error) {
	var all []model.ReplyComment
	for _, r := range f.byID {
		if r.CommentID == commentID {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if sortBy == "asc" {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return pageOf(all, page, limit), int64(len(all)), nil
}

func (f *fakeReplies) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeReplies) Count(_ context.Context) (int64, error) {
	return int64(len(f.byID)), nil
}

type fakeComments struct {
	byID    map[string]model.Comment
	replies *fakeReplies
	seq     int
}

func newFakeComments(replies *fakeReplies) *fakeComments {
	return &fakeComments{byID: map[string]model.Comment{}, replies: replies}
}

func (f *fakeComments) Create(_ context.Context, userID, userEmail, content string) (model.Comment, error) {
	f.seq++
	c := model.Comment{
		ID:             fmt.Sprintf("c%d", f.seq),
		UserID:         userID,
		UserEmail:      userEmail,
		MessageContent: content,
		CreatedAt:      time.Now().UTC().Add(time.Duration(f.seq) * time.Millisecond),
		UpdatedAt:      time.Now().UTC(),
	}
	f.byID[c.ID] = c
	return c, nil
}

func (f *fakeComments) GetByID(_ context.Context, id string) (model.Comment, error) {
	c, ok := f.byID[id]
	if !ok {
		return model.Comment{}, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeComments) ListByRecipient(_ context.Context, email, sortBy string, page, limit int) ([]model.Comment, int64, error) {
	var all []model.Comment
	for _, c := range f.byID {
		if c.UserEmail == email {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if sortBy == "asc" {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return pageOf(all, page, limit), int64(len(all)), nil
}

func (f *fakeComments) DeleteCascade(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	for rid, r := range f.replies.byID {
		if r.CommentID == id {
			delete(f.replies.byID, rid)
		}
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeComments) SetLike(_ context.Context, id string, liked bool) error {
	c, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.LikeByCreator = liked
	f.byID[id] = c
	return nil
}

func (f *fakeComments) Count(_ context.Context) (int64, error) {
	return int64(len(f.byID)), nil
}

func pageOf[T any](all []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(all) {
		return nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

type fakeTokenRow struct {
	userID  string
	exp     time.Time
	revoked bool
}

type fakeTokens struct {
	byHash map[string]*fakeTokenRow
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byHash: map[string]*fakeTokenRow{}}
}

func (f *fakeTokens) Store(_ context.Context, userID, tokenHash string, exp time.Time) error {
	f.byHash[tokenHash] = &fakeTokenRow{userID: userID, exp: exp}
	return nil
}

func (f *fakeTokens) Validate(_ context.Context, tokenHash string) (string, error) {
	row, ok := f.byHash[tokenHash]
	if !ok || row.revoked || !row.exp.After(time.Now().UTC()) {
		return "", repository.ErrTokenInvalid
	}
	return row.userID, nil
}

func (f *fakeTokens) Revoke(_ context.Context, tokenHash string) error {
	if row, ok := f.byHash[tokenHash]; ok {
		row.revoked = true
	}
	return nil
}

// ----- external boundaries -----

type fakeResolver struct {
	codes    map[string]auth.Profile
	idTokens map[string]auth.Profile
}

func (f *fakeResolver) AuthURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (f *fakeResolver) ExchangeCode(_ context.Context, code string) (auth.Profile, error) {
	p, ok := f.codes[code]
	if !ok {
		return auth.Profile{}, auth.ErrExternalAuth
	}
	return p, nil
}

func (f *fakeResolver) VerifyIDToken(_ context.Context, idToken string) (auth.Profile, error) {
	p, ok := f.idTokens[idToken]
	if !ok {
		return auth.Profile{}, auth.ErrExternalAuth
	}
	return p, nil
}

type fakePublisher struct {
	events chan queue.MessageReceivedEvent
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{events: make(chan queue.MessageReceivedEvent, 8)}
}

func (f *fakePublisher) PublishMessageReceived(_ context.Context, event queue.MessageReceivedEvent) error {
	f.events <- event
	return nil
}

// ----- request plumbing -----

type envelope struct {
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Errors     []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

type testRequest struct {
	method string
	path   string
	body   any
	params map[string]string
	email  string
	userID string
}

func doRequest(t *testing.T, h echo.HandlerFunc, r testRequest) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()

	var reader *bytes.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(r.method, r.path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var names, values []string
	for k, v := range r.params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)

	if r.email != "" {
		c.Set(middleware.ContextEmail, r.email)
	}
	if r.userID != "" {
		c.Set(middleware.ContextUserID, r.userID)
	}

	require.NoError(t, h(c))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}
