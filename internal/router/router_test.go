package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"msk-care-coordination/internal/router"
)

func TestHTTP_EndToEnd_TriageToAssignment(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	coordinatorID := "coord-1"

	// 1) Register the patient
	patientID := createPatient(t, ts.URL, map[string]any{
		"first_name": "Anna",
		"last_name":  "de Vries",
		"email":      "anna@example.com",
		"insurer":    "CZ",
	})

	questionnaire := map[string]any{
		"complaint_location":       "lower_back",
		"complaint_duration":       "longer",
		"hinders_daily_activities": "yes",
		"exercises_regularly":      "no",
		"has_had_physiotherapy":    "yes",
		"follows_healthy_diet":     "yes",
		"smokes":                   "no",
	}

	// 2) A "yes" on a high-severity red flag stops the pass with 409
	{
		st, body := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/triage", patientID, "patient", map[string]any{
			"red_flag_answers": []bool{true, false, false, false, false, false},
			"answers":          questionnaire,
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 safety stop, got %d body=%s", st, string(body))
		}
		var stop struct {
			SafetyStop bool   `json:"safety_stop"`
			Action     string `json:"action"`
		}
		_ = json.Unmarshal(body, &stop)
		if !stop.SafetyStop || stop.Action == "" {
			t.Fatalf("expected safety stop payload, got %s", string(body))
		}
	}

	// 3) A clean pass completes and recommends physiotherapy (long duration)
	var sessionID, pathwayID string
	{
		st, body := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/triage", patientID, "patient", map[string]any{
			"red_flag_answers": []bool{false, false, false, false, false, false},
			"answers":          questionnaire,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 triage, got %d body=%s", st, string(body))
		}
		var sess struct {
			ID           string `json:"id"`
			HasRedFlags  bool   `json:"has_red_flags"`
			CarePathways []struct {
				ID          string `json:"id"`
				Discipline  string `json:"discipline"`
				Recommended bool   `json:"recommended"`
			} `json:"care_pathways"`
		}
		_ = json.Unmarshal(body, &sess)
		if sess.ID == "" || sess.HasRedFlags {
			t.Fatalf("unexpected session %s", string(body))
		}
		sessionID = sess.ID
		for _, p := range sess.CarePathways {
			if p.Discipline == "physiotherapy" {
				if !p.Recommended {
					t.Fatalf("expected physiotherapy recommended, body=%s", string(body))
				}
				pathwayID = p.ID
			}
		}
		if pathwayID == "" {
			t.Fatalf("no physiotherapy pathway in %s", string(body))
		}
	}

	// 4) Patient accepts the physiotherapy pathway
	{
		st, body := doReq(t, ts.URL, "POST", "/triage/sessions/"+sessionID+"/pathways/"+pathwayID+"/decision", patientID, "patient", map[string]any{
			"accepted": true,
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 pathway decision, got %d body=%s", st, string(body))
		}
	}

	// 5) Intake is blocked until share_intake consent is granted
	intakePayload := map[string]any{
		"triage_session_id": sessionID,
		"discipline":        "physiotherapy",
		"answers":           map[string]string{"pain_scale": "6"},
		"summary":           "chronic lower back pain, motivated",
	}
	{
		st, _ := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/intake", patientID, "patient", intakePayload)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 intake without consent, got %d", st)
		}
	}
	grantConsent(t, ts.URL, patientID, "share_intake")

	var intakeID string
	{
		st, body := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/intake", patientID, "patient", intakePayload)
		if st != http.StatusCreated {
			t.Fatalf("expected 201 intake, got %d body=%s", st, string(body))
		}
		var resp struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(body, &resp)
		intakeID = resp.ID
	}

	// 6) Plan authoring needs the coordinator role and plan-sharing consent
	planPayload := map[string]any{
		"patient_id":         patientID,
		"intake_summary_id":  intakeID,
		"goals":              []string{"walk 30 minutes without pain"},
		"disciplines":        []string{"physiotherapy"},
		"estimated_sessions": 9,
		"declarable":         true,
	}
	{
		st, _ := doReq(t, ts.URL, "POST", "/plans", patientID, "patient", planPayload)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 plan create as patient, got %d", st)
		}
	}
	{
		st, _ := doReq(t, ts.URL, "POST", "/plans", coordinatorID, "coordinator", planPayload)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 plan without consent, got %d", st)
		}
	}
	grantConsent(t, ts.URL, patientID, "share_treatment_plan")

	var planID string
	{
		st, body := doReq(t, ts.URL, "POST", "/plans", coordinatorID, "coordinator", planPayload)
		if st != http.StatusCreated {
			t.Fatalf("expected 201 plan, got %d body=%s", st, string(body))
		}
		var resp struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.Status != "draft" {
			t.Fatalf("expected draft plan, got %s", string(body))
		}
		planID = resp.ID
	}

	// 7) Broadcast to both physiotherapy practices taking new patients
	var reqA, reqB string
	{
		st, body := doReq(t, ts.URL, "POST", "/plans/"+planID+"/broadcast", coordinatorID, "coordinator", map[string]any{
			"provider_ids": []string{"prov-physio-1", "prov-physio-2"},
			"discipline":   "physiotherapy",
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 broadcast, got %d body=%s", st, string(body))
		}
		var reqs []struct {
			ID         string `json:"id"`
			ProviderID string `json:"provider_id"`
			Status     string `json:"status"`
		}
		_ = json.Unmarshal(body, &reqs)
		if len(reqs) != 2 {
			t.Fatalf("expected 2 care requests, got %s", string(body))
		}
		for _, cr := range reqs {
			if cr.Status != "pending" {
				t.Fatalf("expected pending request, got %s", string(body))
			}
			switch cr.ProviderID {
			case "prov-physio-1":
				reqA = cr.ID
			case "prov-physio-2":
				reqB = cr.ID
			}
		}
	}

	// 8) Second practice accepts first and wins
	{
		st, body := doReq(t, ts.URL, "POST", "/requests/"+reqB+"/respond", "prov-physio-2", "provider", map[string]any{
			"decision":         "accept",
			"appointment_date": time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 accept, got %d body=%s", st, string(body))
		}
		var resp struct {
			Status string `json:"status"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.Status != "accepted" {
			t.Fatalf("expected accepted, got %s", string(body))
		}
	}

	// 9) The plan is active with the winner recorded
	{
		st, body := doReq(t, ts.URL, "GET", "/plans/"+planID, coordinatorID, "coordinator", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 get plan, got %d", st)
		}
		var resp struct {
			Status           string  `json:"status"`
			WinningRequestID *string `json:"winning_request_id"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.Status != "active" {
			t.Fatalf("expected active plan, got %s", string(body))
		}
		if resp.WinningRequestID == nil || *resp.WinningRequestID != reqB {
			t.Fatalf("expected winning request %s, got %s", reqB, string(body))
		}
	}

	// 10) The loser's late accept reports a lost race, not a rejection
	{
		st, body := doReq(t, ts.URL, "POST", "/requests/"+reqA+"/respond", "prov-physio-1", "provider", map[string]any{
			"decision": "accept",
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 race lost, got %d body=%s", st, string(body))
		}
		var resp struct {
			RaceLost bool `json:"race_lost"`
			Request  struct {
				Status string `json:"status"`
			} `json:"request"`
		}
		_ = json.Unmarshal(body, &resp)
		if !resp.RaceLost || resp.Request.Status != "withdrawn" {
			t.Fatalf("expected race_lost payload, got %s", string(body))
		}
	}

	// 11) The winner accepting again is a plain invalid transition
	{
		st, body := doReq(t, ts.URL, "POST", "/requests/"+reqB+"/respond", "prov-physio-2", "provider", map[string]any{
			"decision": "accept",
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 repeat accept, got %d body=%s", st, string(body))
		}
		var resp struct {
			RaceLost bool `json:"race_lost"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.RaceLost {
			t.Fatalf("repeat accept must not report race_lost, got %s", string(body))
		}
	}

	// 12) Coordinator completes the plan and the audit trail has the story
	{
		st, body := doReq(t, ts.URL, "POST", "/plans/"+planID+"/complete", coordinatorID, "coordinator", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 complete plan, got %d body=%s", st, string(body))
		}
	}
	{
		st, body := doReq(t, ts.URL, "GET", "/audit?resource=treatment_plan&resource_id="+planID, coordinatorID, "coordinator", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 audit, got %d body=%s", st, string(body))
		}
		var entries []struct {
			Action string `json:"action"`
		}
		_ = json.Unmarshal(body, &entries)
		if len(entries) == 0 {
			t.Fatalf("expected audit entries for plan, got %s", string(body))
		}
	}
}

func TestHTTP_ProviderCannotAnswerForeignRequest(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	patientID := createPatient(t, ts.URL, map[string]any{
		"first_name": "Jan",
		"last_name":  "Bakker",
		"email":      "jan@example.com",
	})
	grantConsent(t, ts.URL, patientID, "share_intake")
	grantConsent(t, ts.URL, patientID, "share_treatment_plan")

	sessionID := completeTriage(t, ts.URL, patientID)
	intakeID := createIntake(t, ts.URL, patientID, sessionID)
	planID := createPlan(t, ts.URL, "coord-1", patientID, intakeID)

	st, body := doReq(t, ts.URL, "POST", "/plans/"+planID+"/broadcast", "coord-1", "coordinator", map[string]any{
		"provider_ids": []string{"prov-physio-1"},
		"discipline":   "physiotherapy",
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 broadcast, got %d body=%s", st, string(body))
	}
	var reqs []struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &reqs)

	st, _ = doReq(t, ts.URL, "POST", "/requests/"+reqs[0].ID+"/respond", "prov-physio-2", "provider", map[string]any{
		"decision": "accept",
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 foreign respond, got %d", st)
	}
}

func createPatient(t *testing.T, baseURL string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/patients", "", "", payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create patient, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("create patient: missing id body=%s", string(body))
	}
	return resp.ID
}

func grantConsent(t *testing.T, baseURL, patientID, consentType string) {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/patients/"+patientID+"/consents", patientID, "patient", map[string]any{
		"type":    consentType,
		"granted": true,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 grant %s, got %d body=%s", consentType, st, string(body))
	}
}

func completeTriage(t *testing.T, baseURL, patientID string) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/patients/"+patientID+"/triage", patientID, "patient", map[string]any{
		"red_flag_answers": []bool{false, false, false, false, false, false},
		"answers": map[string]any{
			"complaint_location":       "shoulder",
			"complaint_duration":       "longer",
			"hinders_daily_activities": "no",
			"exercises_regularly":      "yes",
			"has_had_physiotherapy":    "no",
			"follows_healthy_diet":     "yes",
			"smokes":                   "no",
		},
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 triage, got %d body=%s", st, string(body))
	}
	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	return resp.ID
}

func createIntake(t *testing.T, baseURL, patientID, sessionID string) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/patients/"+patientID+"/intake", patientID, "patient", map[string]any{
		"triage_session_id": sessionID,
		"discipline":        "physiotherapy",
		"answers":           map[string]string{"pain_scale": "4"},
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 intake, got %d body=%s", st, string(body))
	}
	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	return resp.ID
}

func createPlan(t *testing.T, baseURL, coordinatorID, patientID, intakeID string) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/plans", coordinatorID, "coordinator", map[string]any{
		"patient_id":         patientID,
		"intake_summary_id":  intakeID,
		"goals":              []string{"regain shoulder mobility"},
		"disciplines":        []string{"physiotherapy"},
		"estimated_sessions": 6,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 plan, got %d body=%s", st, string(body))
	}
	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	return resp.ID
}

func doReq(t *testing.T, baseURL, method, path, debugUserID, debugRole string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
		req.Header.Set("X-Debug-User-Role", debugRole)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
