package form

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
)

func campaignID(id int) string {
	return strconv.Itoa(id)
}

// HTTPSubmitter posts a submission to the feedback endpoint as a single
// multipart request.
type HTTPSubmitter struct {
	URL    string
	Client *http.Client
}

func (h *HTTPSubmitter) Submit(ctx context.Context, p Payload) error {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	if err := writeFields(mw, p); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("submit: server replied %s", resp.Status)
	}
	return nil
}

func writeFields(mw *multipart.Writer, p Payload) error {
	if err := mw.WriteField("orderId", p.OrderID); err != nil {
		return err
	}
	if err := mw.WriteField("companyId", p.CompanyID); err != nil {
		return err
	}
	if p.CampaignID != "" {
		if err := mw.WriteField("campaignId", p.CampaignID); err != nil {
			return err
		}
	}
	if p.NPSScore != nil {
		if err := mw.WriteField("npsScore", strconv.Itoa(*p.NPSScore)); err != nil {
			return err
		}
	}
	if len(p.Answers) > 0 {
		encoded, err := json.Marshal(p.Answers)
		if err != nil {
			return err
		}
		if err := mw.WriteField("questionResponses", string(encoded)); err != nil {
			return err
		}
	}

	switch {
	case p.Audio != nil:
		fw, err := mw.CreateFormFile("audio", "feedback.webm")
		if err != nil {
			return err
		}
		if _, err := fw.Write(p.Audio); err != nil {
			return err
		}
	case p.Text != "":
		if err := mw.WriteField("textFeedback", p.Text); err != nil {
			return err
		}
	}
	return nil
}
