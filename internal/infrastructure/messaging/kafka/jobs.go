// Package kafka carries the analysis job queue. Batch submissions are
// enqueued by the API and CLI and drained by workers, which fetch the
// document from object storage, run the engine and persist the result.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/caselens/claimsift/pkg/errors"
)

// DefaultTopic is the queue topic when configuration leaves it empty.
const DefaultTopic = "claimsift.analysis.jobs"

// AnalysisJob is one queued document analysis. Either Text carries the
// document inline, or Bucket and ObjectKey point at it in object storage.
type AnalysisJob struct {
	JobID       string    `json:"job_id"`
	DocumentID  string    `json:"document_id"`
	Text        string    `json:"text,omitempty"`
	Bucket      string    `json:"bucket,omitempty"`
	ObjectKey   string    `json:"object_key,omitempty"`
	Roster      []string  `json:"roster,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Validate checks that the job names a document and a way to obtain it.
func (j *AnalysisJob) Validate() error {
	if j.DocumentID == "" {
		return errors.New(errors.ErrCodeValidation, "job requires a document_id")
	}
	if j.Text == "" && j.ObjectKey == "" {
		return errors.New(errors.ErrCodeValidation, "job requires inline text or an object key")
	}
	return nil
}

// Inline reports whether the document text travels with the job.
func (j *AnalysisJob) Inline() bool {
	return j.Text != ""
}

func encodeJob(job *AnalysisJob) ([]byte, error) {
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeJobEncodeFailed, "failed to encode analysis job")
	}
	return data, nil
}

func decodeJob(data []byte) (AnalysisJob, error) {
	var job AnalysisJob
	if err := json.Unmarshal(data, &job); err != nil {
		return job, errors.Wrap(err, errors.ErrCodeJobDecodeFailed, "failed to decode analysis job")
	}
	if err := job.Validate(); err != nil {
		return job, errors.Wrap(err, errors.ErrCodeJobDecodeFailed, "invalid analysis job")
	}
	return job, nil
}
