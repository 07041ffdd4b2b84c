package processor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"campus-ml-go/internal/config"
	"campus-ml-go/internal/parser"
	"campus-ml-go/internal/resume"
	"campus-ml-go/internal/storage"
	"campus-ml-go/internal/testutil"
	"campus-ml-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	getErr  error
}

func newMemObjects() *memObjects { return &memObjects{objects: map[string][]byte{}} }

func (m *memObjects) PutOriginal(_ context.Context, jobID string, data []byte) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storage.OriginalObjectKey(jobID)
	m.objects[key] = append([]byte(nil), data...)
	return key, nil
}

func (m *memObjects) GetOriginal(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (m *memObjects) DeleteOriginal(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type memJobs struct {
	mu      sync.Mutex
	jobs    map[string]types.ParseJob
	md5s    map[string]string
	saveErr error
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: map[string]types.ParseJob{}, md5s: map[string]string{}}
}

func (m *memJobs) SaveJob(_ context.Context, job *types.ParseJob) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.JobID] = *job
	return nil
}

func (m *memJobs) GetJob(_ context.Context, id string) (*types.ParseJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, storage.ErrJobNotFound
	}
	return &job, nil
}

func (m *memJobs) ClaimFileMD5(_ context.Context, md5Hex, jobID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, ok := m.md5s[md5Hex]; ok {
		return owner, false, nil
	}
	m.md5s[md5Hex] = jobID
	return jobID, true, nil
}

func (m *memJobs) ReleaseFileMD5(_ context.Context, md5Hex string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.md5s, md5Hex)
	return nil
}

type memQueue struct {
	mu         sync.Mutex
	published  [][]byte
	exchange   string
	routingKey string
	err        error
}

func (q *memQueue) PublishJSON(_ context.Context, exchange, routingKey string, data interface{}, _ bool) error {
	if q.err != nil {
		return q.err
	}
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.exchange, q.routingKey = exchange, routingKey
	q.published = append(q.published, body)
	return nil
}

type stubParser struct {
	profile *types.CandidateProfile
	err     error
}

func (p stubParser) ParseDocument(context.Context, []byte, string) (*types.CandidateProfile, error) {
	return p.profile, p.err
}

type fixture struct {
	svc     *ParseService
	objects *memObjects
	jobs    *memJobs
	queue   *memQueue
}

var mqCfg = config.RabbitMQConfig{
	ParseExchange:   "resume.parse.exchange",
	ParseRoutingKey: "resume.parse",
	ParseQueue:      "q.resume_parse",
}

func newFixture(p DocumentParser) *fixture {
	f := &fixture{objects: newMemObjects(), jobs: newMemJobs(), queue: &memQueue{}}
	n := 0
	f.svc = NewParseService(p, f.objects, f.jobs, f.queue, mqCfg,
		WithIDGenerator(func() (string, error) {
			n++
			return []string{"job-1", "job-2", "job-3"}[n-1], nil
		}),
		WithClock(func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }),
	)
	return f
}

func TestSubmitQueuesJob(t *testing.T) {
	f := newFixture(stubParser{})
	ctx := ContextWithRequestID(context.Background(), "req-9")

	job, err := f.svc.Submit(ctx, "cv.pdf", []byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.JobID)
	assert.Equal(t, types.JobStatusQueued, job.Status)

	assert.Contains(t, f.objects.objects, "originals/job-1.pdf", "原始文件应归档")
	stored, err := f.jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusQueued, stored.Status)

	require.Len(t, f.queue.published, 1)
	assert.Equal(t, mqCfg.ParseExchange, f.queue.exchange)
	assert.Equal(t, mqCfg.ParseRoutingKey, f.queue.routingKey)
	var msg storage.ParseJobMessage
	require.NoError(t, json.Unmarshal(f.queue.published[0], &msg))
	assert.Equal(t, "originals/job-1.pdf", msg.ObjectKey)
	assert.Equal(t, "req-9", msg.RequestID)
	assert.Len(t, msg.FileMD5, 32)
}

func TestSubmitDuplicate(t *testing.T) {
	f := newFixture(stubParser{})
	ctx := context.Background()
	data := []byte("%PDF-1.4 same file")

	first, err := f.svc.Submit(ctx, "a.pdf", data)
	require.NoError(t, err)

	second, err := f.svc.Submit(ctx, "b.pdf", data)
	require.NoError(t, err)
	assert.Equal(t, first.JobID, second.JobID, "重复文件应返回原任务ID")
	assert.Equal(t, types.JobStatusDuplicate, second.Status)
	assert.Len(t, f.queue.published, 1, "重复文件不应再次投递")
}

func TestSubmitDuplicateAfterJobExpired(t *testing.T) {
	f := newFixture(stubParser{})
	ctx := context.Background()
	data := []byte("%PDF-1.4 expired")

	_, err := f.svc.Submit(ctx, "a.pdf", data)
	require.NoError(t, err)
	delete(f.jobs.jobs, "job-1")

	job, err := f.svc.Submit(ctx, "a.pdf", data)
	require.NoError(t, err)
	assert.Equal(t, "job-2", job.JobID, "原任务过期后应创建新任务")
	assert.Equal(t, types.JobStatusQueued, job.Status)
}

func TestSubmitErrors(t *testing.T) {
	f := newFixture(stubParser{})
	_, err := f.svc.Submit(context.Background(), "a.pdf", nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	f = newFixture(stubParser{})
	f.objects.putErr = errors.New("minio down")
	_, err = f.svc.Submit(context.Background(), "a.pdf", []byte("x"))
	assert.ErrorIs(t, err, ErrArchiveFailed)
	assert.Empty(t, f.jobs.md5s, "失败后应释放MD5")

	f = newFixture(stubParser{})
	f.queue.err = errors.New("channel closed")
	_, err = f.svc.Submit(context.Background(), "a.pdf", []byte("x"))
	require.ErrorIs(t, err, ErrPublishFailed)
	var jobErr *ParseJobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, "job-1", jobErr.JobID)
	assert.Equal(t, "publish", jobErr.Op)
	stored, getErr := f.jobs.GetJob(context.Background(), "job-1")
	require.NoError(t, getErr)
	assert.Equal(t, types.JobStatusFailed, stored.Status, "投递失败的任务应标记为失败")
}

func submitAndTakeMessage(t *testing.T, f *fixture, data []byte) []byte {
	t.Helper()
	_, err := f.svc.Submit(context.Background(), "cv.pdf", data)
	require.NoError(t, err)
	require.NotEmpty(t, f.queue.published)
	return f.queue.published[len(f.queue.published)-1]
}

func TestHandleMessageEndToEnd(t *testing.T) {
	pipeline := resume.NewPipeline(parser.NewPagedPDFExtractor(), resume.NewExtractor())
	f := newFixture(pipeline)

	pdf := testutil.BuildPDF("Contact jane@example.com 5551234567")
	body := submitAndTakeMessage(t, f, pdf)

	action := f.svc.HandleMessage(context.Background(), body)
	assert.Equal(t, storage.ActionAck, action)

	job, err := f.svc.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, types.JobStatusDone, job.Status)
	require.NotNil(t, job.Profile)
	assert.Equal(t, "jane@example.com", job.Profile.Email)
	assert.Equal(t, "5551234567", job.Profile.Phone)
	assert.NotNil(t, job.FinishedAt)

	assert.Equal(t, storage.ActionAck, f.svc.HandleMessage(context.Background(), body), "重复投递直接确认")
}

func TestHandleMessageParseFailureIsAcked(t *testing.T) {
	perr := &parser.ParseError{URI: "cv.pdf", Backend: parser.BackendPages, Cause: errors.New("bad xref")}
	f := newFixture(stubParser{err: perr})
	body := submitAndTakeMessage(t, f, []byte("not a pdf"))

	assert.Equal(t, storage.ActionAck, f.svc.HandleMessage(context.Background(), body), "解析失败不重试")

	job, err := f.svc.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusFailed, job.Status)
	assert.NotEmpty(t, job.Error)
	assert.Empty(t, f.jobs.md5s, "失败后允许重新提交")
}

func TestHandleMessageTransientErrorsRequeue(t *testing.T) {
	f := newFixture(stubParser{profile: types.EmptyProfile()})
	body := submitAndTakeMessage(t, f, []byte("x"))

	f.objects.getErr = errors.New("connection refused")
	assert.Equal(t, storage.ActionRequeue, f.svc.HandleMessage(context.Background(), body))

	f.objects.getErr = nil
	f.jobs.saveErr = errors.New("redis timeout")
	assert.Equal(t, storage.ActionRequeue, f.svc.HandleMessage(context.Background(), body))
}

func TestHandleMessageMissingObject(t *testing.T) {
	f := newFixture(stubParser{profile: types.EmptyProfile()})
	body := submitAndTakeMessage(t, f, []byte("x"))
	f.objects.objects = map[string][]byte{}

	assert.Equal(t, storage.ActionAck, f.svc.HandleMessage(context.Background(), body))
	job, err := f.svc.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusFailed, job.Status)
}

func TestHandleMessageBadPayload(t *testing.T) {
	f := newFixture(stubParser{})
	assert.Equal(t, storage.ActionDiscard, f.svc.HandleMessage(context.Background(), []byte("{")))
	assert.Equal(t, storage.ActionDiscard, f.svc.HandleMessage(context.Background(), []byte(`{"job_id":""}`)))
	assert.Equal(t, storage.ActionAck, f.svc.HandleMessage(context.Background(), []byte(`{"job_id":"gone"}`)), "过期任务直接确认")
}

func TestStartConsumerWithoutConsumer(t *testing.T) {
	f := newFixture(stubParser{})
	_, err := f.svc.StartConsumer(context.Background())
	assert.ErrorIs(t, err, ErrConsumerDisabled)
}

func TestParseJobErrorMessage(t *testing.T) {
	err := newJobError("j1", "archive", ErrArchiveFailed, errors.New("boom"))
	assert.Equal(t, "保存原始文件失败 (操作:archive, 任务:j1): boom", err.Error())
	assert.True(t, errors.Is(err, ErrArchiveFailed))
	assert.False(t, errors.Is(err, ErrPublishFailed))
}
