package routes

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/acolella/voxpop/app"
	"github.com/acolella/voxpop/form"
	"github.com/acolella/voxpop/httpx"
	"github.com/acolella/voxpop/log"
	"github.com/acolella/voxpop/model"
)

// 16MB covers the longest voice recording the capture side allows.
const maxSubmissionBytes = 16 << 20

// PublicGetCampaign serves the campaign schema the submission form renders
// from. One fetch per session.
func PublicGetCampaign(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		campaign, err := loadCampaign(r.Context(), app.DB, campaignId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_campaign", campaignId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_campaign", err)
			return
		}

		render.JSON(w, r, campaign)
	}
}

// SubmitFeedback is the submit endpoint: one multipart payload per
// submission, carrying exactly one of `audio` and `textFeedback` plus the
// identifying fields and JSON-encoded question responses. Submissions are
// re-validated against the campaign schema with the same gate the client
// engine uses, so the two ends cannot drift.
func SubmitFeedback(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseMultipartForm(maxSubmissionBytes)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_multipart")
			return
		}

		companyId := r.FormValue("companyId")
		if companyId == "" {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.company_id", "companyId required")
			return
		}
		orderId := r.FormValue("orderId")

		var npsScore *int
		if raw := r.FormValue("npsScore"); raw != "" {
			score, err := strconv.Atoi(raw)
			if err != nil || score < 1 || score > 10 {
				httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.nps_score", "npsScore must be an integer between 1 and 10")
				return
			}
			npsScore = &score
		}

		textFeedback := r.FormValue("textFeedback")
		audio, err := readAudio(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.audio")
			return
		}
		if audio != nil && textFeedback != "" {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.channels", "send either audio or textFeedback, not both")
			return
		}
		mode := string(form.ModeText)
		if audio != nil {
			mode = string(form.ModeVoice)
		}

		var campaign model.Campaign
		var campaignId sql.NullInt64
		if raw := r.FormValue("campaignId"); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil {
				httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.campaign_id")
				return
			}

			campaign, err = loadCampaign(r.Context(), app.DB, id)
			if errors.Is(err, sql.ErrNoRows) {
				httpx.LogNotFound(w, "submit_feedback.campaign", id)
				return
			}
			if err != nil {
				httpx.LogInternalError(w, "db.get_campaign", err)
				return
			}
			if campaign.CompanyID != companyId {
				httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.campaign_company_mismatch")
				return
			}
			campaignId = sql.NullInt64{Int64: int64(id), Valid: true}
		}

		answers, err := decodeAnswers(campaign, r.FormValue("questionResponses"))
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.question_responses", "%s", err)
			return
		}

		// The engine's consent gate never lets an unconsented payload out
		// the door; arrival is the consent signal. Everything else is
		// checked again, rule order and reasons identical to the client.
		if campaignId.Valid {
			err = form.Validate(campaign, form.Snapshot{
				OrderID:         orderId,
				OrderIDEditable: true,
				NPSScore:        npsScore,
				Consent:         true,
				Answers:         answers,
			})
			if err != nil {
				httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "submit_feedback.validate", "%s", err)
				return
			}
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		feedbackId := uuid.NewString()
		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO feedback
				(id, campaign_id, company_id, order_id, nps_score, mode,
				text_feedback, audio, consent, time)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
			feedbackId,
			campaignId,
			companyId,
			orderId,
			npsScore,
			mode,
			textFeedback,
			audio,
			time.Now().UTC(),
		)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_feedback", err)
			return
		}

		if len(answers) > 0 {
			stmt, err := tx.PrepareContext(r.Context(), `
				INSERT INTO feedback_answer (feedback_id, question_id, value)
				VALUES (?, ?, ?)`)
			if err != nil {
				httpx.LogInternalError(w, "db.insert_feedback.answers.prepare", err)
				return
			}
			defer stmt.Close()

			for questionId, value := range answers {
				valueJson, err := json.Marshal(value)
				if err != nil {
					httpx.LogInternalError(w, "db.insert_feedback.answers.encode", err)
					return
				}
				_, err = stmt.ExecContext(r.Context(), feedbackId, questionId, string(valueJson))
				if err != nil {
					httpx.LogInternalError(w, "db.insert_feedback.answers.insert", err)
					return
				}
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.insert_feedback.commit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": feedbackId,
		})
	}
}

func readAudio(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("audio")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// decodeAnswers parses the questionResponses field, enforcing that every
// referenced question exists in the campaign and that each value conforms
// to its question's type.
func decodeAnswers(campaign model.Campaign, raw string) (map[string]model.AnswerValue, error) {
	if raw == "" {
		return nil, nil
	}

	var byId map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &byId); err != nil {
		return nil, errors.New("questionResponses must be a JSON object")
	}

	answers := make(map[string]model.AnswerValue, len(byId))
	for questionId, value := range byId {
		q, ok := campaign.QuestionByID(questionId)
		if !ok {
			return nil, errors.New("unknown question " + questionId)
		}
		if !model.KnownType(q.Type) {
			// unsupported question types never render, so never answer
			continue
		}

		v, err := model.DecodeAnswer(q, value)
		if err != nil {
			return nil, err
		}
		answers[questionId] = v
	}
	return answers, nil
}
