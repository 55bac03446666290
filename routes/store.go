package routes

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/acolella/voxpop/model"
)

// loadCampaign fetches one campaign with its questions in display order.
// Returns sql.ErrNoRows when the campaign does not exist.
func loadCampaign(ctx context.Context, db *sql.DB, id int) (model.Campaign, error) {
	c := model.Campaign{}
	err := db.QueryRowContext(ctx, `
		SELECT
			id, version, company_id, name,
			include_nps, nps_question, include_questions,
			allow_voice, allow_text, require_order_id
		FROM campaign
		WHERE id = ?`,
		id,
	).Scan(
		&c.ID, &c.Version, &c.CompanyID, &c.Name,
		&c.IncludeNPS, &c.NPSQuestion, &c.IncludeQuestions,
		&c.Settings.AllowVoice, &c.Settings.AllowText, &c.Settings.RequireOrderID,
	)
	if err != nil {
		return c, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, type, text, required, options, scale
		FROM campaign_question
		WHERE campaign_id = ?
		ORDER BY position`,
		id,
	)
	if err != nil {
		return c, err
	}
	defer rows.Close()

	for rows.Next() {
		q := model.Question{}
		var opts, scale sql.NullString
		err = rows.Scan(&q.ID, &q.Type, &q.Text, &q.Required, &opts, &scale)
		if err != nil {
			return c, err
		}

		if opts.Valid && opts.String != "" {
			if err = json.Unmarshal([]byte(opts.String), &q.Options); err != nil {
				return c, err
			}
		}
		if scale.Valid && scale.String != "" {
			q.Scale = &model.RatingScale{}
			if err = json.Unmarshal([]byte(scale.String), q.Scale); err != nil {
				return c, err
			}
		}

		c.Questions = append(c.Questions, q)
	}
	return c, rows.Err()
}

// loadCompanyQuestions gathers every question configured for a company,
// across campaigns, preserving per-campaign display order. Used to build
// export columns.
func loadCompanyQuestions(ctx context.Context, db *sql.DB, companyID string) ([]model.Question, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT q.id, q.type, q.text, q.required
		FROM campaign_question q
		INNER JOIN campaign c ON (c.id = q.campaign_id)
		WHERE c.company_id = ?
		ORDER BY q.campaign_id, q.position`,
		companyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	seen := map[string]bool{}
	for rows.Next() {
		q := model.Question{}
		if err := rows.Scan(&q.ID, &q.Type, &q.Text, &q.Required); err != nil {
			return nil, err
		}
		if seen[q.ID] {
			continue
		}
		seen[q.ID] = true
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// loadCompanyFeedback fetches feedback for a company, newest first, with
// answers attached. limit <= 0 means no limit.
func loadCompanyFeedback(ctx context.Context, db *sql.DB, companyID string, limit int) ([]model.Feedback, error) {
	query := `
		SELECT
			id, campaign_id, order_id, nps_score, mode,
			text_feedback, transcript, sentiment, themes, analyzed, time
		FROM feedback
		WHERE company_id = ?
		ORDER BY time DESC, rowid DESC`
	args := []any{companyID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feedback []model.Feedback
	index := map[string]int{}
	for rows.Next() {
		fb := model.Feedback{CompanyID: companyID}
		var campaignID sql.NullInt64
		var themes string
		err = rows.Scan(
			&fb.ID, &campaignID, &fb.OrderID, &fb.NPSScore, &fb.Mode,
			&fb.Text, &fb.Transcript, &fb.Sentiment, &themes, &fb.Analyzed, &fb.Time,
		)
		if err != nil {
			return nil, err
		}
		if campaignID.Valid {
			fb.CampaignID = int(campaignID.Int64)
		}
		if themes != "" {
			if err = json.Unmarshal([]byte(themes), &fb.Themes); err != nil {
				return nil, err
			}
		}

		index[fb.ID] = len(feedback)
		feedback = append(feedback, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(feedback) == 0 {
		return feedback, nil
	}

	answers, err := db.QueryContext(ctx, `
		SELECT a.feedback_id, a.question_id, a.value, q.type, q.text, q.required, q.options, q.scale
		FROM feedback_answer a
		INNER JOIN feedback f ON (f.id = a.feedback_id)
		LEFT OUTER JOIN campaign_question q
			ON (q.campaign_id = f.campaign_id AND q.id = a.question_id)
		WHERE f.company_id = ?`,
		companyID,
	)
	if err != nil {
		return nil, err
	}
	defer answers.Close()

	for answers.Next() {
		var feedbackID, questionID, value string
		var qType, qText sql.NullString
		var required sql.NullBool
		var opts, scale sql.NullString
		err = answers.Scan(&feedbackID, &questionID, &value, &qType, &qText, &required, &opts, &scale)
		if err != nil {
			return nil, err
		}

		i, ok := index[feedbackID]
		if !ok {
			continue
		}

		// answers to questions since removed from the campaign decode as text
		q := model.Question{ID: questionID, Type: model.QuestionText}
		if qType.Valid {
			q.Type = model.QuestionType(qType.String)
			q.Text = qText.String
			q.Required = required.Bool
			if opts.Valid && opts.String != "" {
				if err = json.Unmarshal([]byte(opts.String), &q.Options); err != nil {
					return nil, err
				}
			}
			if scale.Valid && scale.String != "" {
				q.Scale = &model.RatingScale{}
				if err = json.Unmarshal([]byte(scale.String), q.Scale); err != nil {
					return nil, err
				}
			}
		}

		v, err := model.DecodeAnswer(q, json.RawMessage(value))
		if err != nil {
			// stored before a schema edit; keep whatever text we can
			var s string
			if json.Unmarshal([]byte(value), &s) != nil {
				s = value
			}
			v = model.TextAnswer(s)
		}

		if feedback[i].Answers == nil {
			feedback[i].Answers = map[string]model.AnswerValue{}
		}
		feedback[i].Answers[questionID] = v
	}
	return feedback, answers.Err()
}
