package routes

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/acolella/voxpop/app"
	"github.com/acolella/voxpop/export"
	"github.com/acolella/voxpop/httpx"
	"github.com/acolella/voxpop/log"
	"github.com/acolella/voxpop/model"
	"github.com/acolella/voxpop/routes/middlewares"
)

var validate = validator.New()

// checkCampaign runs struct validation plus the constraints tags cannot
// express: a rating scale must be a proper interval, choice options must
// be non-empty strings.
func checkCampaign(c model.Campaign) error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for _, q := range c.Questions {
		if q.Type == model.QuestionRating && q.Scale != nil && q.Scale.Min >= q.Scale.Max {
			return fmt.Errorf("question %q: scale min must be below max", q.Text)
		}
		if q.Type == model.QuestionMultipleChoice {
			for _, opt := range q.Options {
				if opt == "" {
					return fmt.Errorf("question %q: empty option", q.Text)
				}
			}
		}
	}
	return nil
}

func insertQuestions(ctx context.Context, tx *sql.Tx, campaignId int, questions []model.Question) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO campaign_question (campaign_id, id, position, type, text, required, options, scale)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, q := range questions {
		id := q.ID
		if id == "" {
			id = fmt.Sprintf("q%d", i+1)
		}

		var optionsJson, scaleJson []byte
		if q.Options != nil {
			optionsJson, err = json.Marshal(q.Options)
			if err != nil {
				return err
			}
		}
		if q.Scale != nil {
			scaleJson, err = json.Marshal(q.Scale)
			if err != nil {
				return err
			}
		}

		_, err = stmt.ExecContext(ctx, campaignId, id, i, q.Type, q.Text, q.Required, nullable(optionsJson), nullable(scaleJson))
		if err != nil {
			return err
		}
	}
	return nil
}

func nullable(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

func CreateCampaign(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaign := model.Campaign{}
		err := render.DecodeJSON(r.Body, &campaign)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		campaign.CompanyID = middlewares.CompanyID(r)

		if err = checkCampaign(campaign); err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "create_campaign.validate", "%s", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var campaignId int
		err = tx.QueryRowContext(r.Context(), `
			INSERT INTO campaign
				(company_id, name, include_nps, nps_question, include_questions,
				allow_voice, allow_text, require_order_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			campaign.CompanyID,
			campaign.Name,
			campaign.IncludeNPS,
			campaign.NPSQuestion,
			campaign.IncludeQuestions,
			campaign.Settings.AllowVoice,
			campaign.Settings.AllowText,
			campaign.Settings.RequireOrderID,
		).Scan(&campaignId)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_campaign", err)
			return
		}

		if err = insertQuestions(r.Context(), tx, campaignId, campaign.Questions); err != nil {
			httpx.LogInternalError(w, "db.insert_campaign.questions", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.insert_campaign.commit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": campaignId,
		})
	}
}

func ListCampaigns(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT id, version, name, include_nps, include_questions
			FROM campaign
			WHERE company_id = ?`,
			middlewares.CompanyID(r),
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_campaigns", err)
			return
		}
		defer rows.Close()

		campaigns := []model.Campaign{}
		for rows.Next() {
			c := model.Campaign{}
			err = rows.Scan(&c.ID, &c.Version, &c.Name, &c.IncludeNPS, &c.IncludeQuestions)
			if err != nil {
				httpx.LogInternalError(w, "db.get_campaigns.scan", err)
				return
			}

			campaigns = append(campaigns, c)
		}

		render.JSON(w, r, map[string]any{
			"campaigns": campaigns,
		})
	}
}

func GetCampaignById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		campaign, err := loadCampaign(r.Context(), app.DB, campaignId)
		if err == sql.ErrNoRows || (err == nil && campaign.CompanyID != middlewares.CompanyID(r)) {
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

func UpdateCampaign(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		campaign := model.Campaign{}
		err = render.DecodeJSON(r.Body, &campaign)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		campaign.CompanyID = middlewares.CompanyID(r)

		if err = checkCampaign(campaign); err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "update_campaign.validate", "%s", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		// replace all questions
		_, err = tx.ExecContext(r.Context(), `
			DELETE FROM campaign_question
			WHERE campaign_id = ?`,
			campaignId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_campaign.delete_questions", err)
			return
		}

		if err = insertQuestions(r.Context(), tx, campaignId, campaign.Questions); err != nil {
			httpx.LogInternalError(w, "db.update_campaign.questions", err)
			return
		}

		res, err := tx.ExecContext(r.Context(), `
			UPDATE campaign
			SET
				name = ?,
				include_nps = ?,
				nps_question = ?,
				include_questions = ?,
				allow_voice = ?,
				allow_text = ?,
				require_order_id = ?,
				version = version+1
			WHERE	id = ?
				AND version = ?
				AND company_id = ?`,
			campaign.Name,
			campaign.IncludeNPS,
			campaign.NPSQuestion,
			campaign.IncludeQuestions,
			campaign.Settings.AllowVoice,
			campaign.Settings.AllowText,
			campaign.Settings.RequireOrderID,
			campaignId,
			campaign.Version,
			campaign.CompanyID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_campaign", err)
			return
		}
		// optimistic lock
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_campaign.verify", err)
			return
		}
		if n < 1 {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "db.update_campaign.verify.conflict")
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.update_campaign.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteCampaign(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(r.Context(), `
			DELETE FROM campaign_question
			WHERE campaign_id = ?`,
			campaignId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_campaign.questions", err)
			return
		}

		res, err := tx.ExecContext(r.Context(), `
			DELETE FROM campaign
			WHERE	id = ?
				AND company_id = ?`,
			campaignId,
			middlewares.CompanyID(r),
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_campaign", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_campaign.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "delete_campaign", campaignId)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_campaign.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// Dashboard aggregates what the staff view polls for: the NPS trend, the
// latest daily theme summaries and the most recent feedback entries.
func Dashboard(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyId := middlewares.CompanyID(r)

		trend, err := npsTrend(r.Context(), app.DB, companyId)
		if err != nil {
			httpx.LogInternalError(w, "db.dashboard.nps_trend", err)
			return
		}

		summaries, err := dailySummaries(r.Context(), app.DB, companyId)
		if err != nil {
			httpx.LogInternalError(w, "db.dashboard.summaries", err)
			return
		}

		feedback, err := loadCompanyFeedback(r.Context(), app.DB, companyId, 50)
		if err != nil {
			httpx.LogInternalError(w, "db.dashboard.feedback", err)
			return
		}
		if feedback == nil {
			feedback = []model.Feedback{}
		}

		render.JSON(w, r, map[string]any{
			"npsTrend":       trend,
			"dailySummaries": summaries,
			"feedback":       feedback,
		})
	}
}

func npsTrend(ctx context.Context, db *sql.DB, companyId string) ([]model.NPSPoint, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			date(time),
			COUNT(nps_score),
			AVG(nps_score),
			SUM(nps_score >= 9),
			SUM(nps_score <= 6)
		FROM feedback
		WHERE company_id = ?
			AND nps_score IS NOT NULL
			AND time >= date('now', '-30 days')
		GROUP BY date(time)
		ORDER BY date(time)`,
		companyId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trend := []model.NPSPoint{}
	for rows.Next() {
		p := model.NPSPoint{}
		err = rows.Scan(&p.Day, &p.Responses, &p.Average, &p.Promoters, &p.Detractors)
		if err != nil {
			return nil, err
		}
		if p.Responses > 0 {
			p.Score = float64(p.Promoters-p.Detractors) * 100 / float64(p.Responses)
		}
		trend = append(trend, p)
	}
	return trend, rows.Err()
}

func dailySummaries(ctx context.Context, db *sql.DB, companyId string) ([]model.DailySummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT company_id, day, summary, generated_at
		FROM daily_summary
		WHERE company_id = ?
		ORDER BY day DESC
		LIMIT 14`,
		companyId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []model.DailySummary{}
	for rows.Next() {
		s := model.DailySummary{}
		err = rows.Scan(&s.CompanyID, &s.Day, &s.Summary, &s.Generated)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// RunAnalysis kicks the sentiment job off in the background. A second
// trigger while one is running gets a conflict instead of a queue.
func RunAnalysis(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !app.Analyzer.Enabled() {
			httpx.LogStatus(w, http.StatusServiceUnavailable, log.WarnLevel, "run_analysis.not_configured")
			return
		}

		// detached from the request: the job outlives this response
		if !app.Analyzer.TryRun(context.WithoutCancel(r.Context())) {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "run_analysis.already_running")
			return
		}

		w.WriteHeader(http.StatusAccepted)
		render.JSON(w, r, map[string]any{
			"status": "started",
		})
	}
}

// ExportFeedback streams the company's feedback as an xlsx workbook.
func ExportFeedback(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyId := middlewares.CompanyID(r)

		questions, err := loadCompanyQuestions(r.Context(), app.DB, companyId)
		if err != nil {
			httpx.LogInternalError(w, "db.export.questions", err)
			return
		}

		feedback, err := loadCompanyFeedback(r.Context(), app.DB, companyId, 0)
		if err != nil {
			httpx.LogInternalError(w, "db.export.feedback", err)
			return
		}

		workbook, err := export.Workbook(questions, feedback)
		if err != nil {
			httpx.LogInternalError(w, "export.workbook", err)
			return
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="feedback.xlsx"`)
		if err = workbook.Write(w); err != nil {
			log.Errorf("export.write: %s", err)
		}
	}
}
