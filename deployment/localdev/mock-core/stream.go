package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// stepDelay paces the scripted phases so a human watching the CLI sees the
// investigation progress. Tests shrink it.
var stepDelay = 150 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// investigations hands out query ids and streams a scripted agent run for
// each one. Questions containing "fail" abort mid-pipeline so the error path
// can be exercised.
type investigations struct {
	logger *log.Logger

	mu      sync.Mutex
	queries map[string]string
	active  map[string]bool
}

func newInvestigations(logger *log.Logger) *investigations {
	return &investigations{
		logger:  logger,
		queries: make(map[string]string),
		active:  make(map[string]bool),
	}
}

func (inv *investigations) start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query  string `json:"query"`
		SiteID string `json:"site_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"query is required"}`))
		return
	}

	queryID := "q-" + uuid.NewString()[:8]
	inv.mu.Lock()
	inv.queries[queryID] = req.Query
	inv.mu.Unlock()

	inv.logger.Printf("investigation %s accepted: %q", queryID, req.Query)
	writeJSON(w, map[string]any{"query_id": queryID})
}

func (inv *investigations) stream(w http.ResponseWriter, r *http.Request) {
	queryID := r.PathValue("id")

	inv.mu.Lock()
	question, known := inv.queries[queryID]
	attached := inv.active[queryID]
	if known {
		inv.active[queryID] = true
	}
	inv.mu.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		inv.logger.Printf("upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	defer func() {
		inv.mu.Lock()
		delete(inv.active, queryID)
		inv.mu.Unlock()
	}()

	send := func(frame map[string]any) bool {
		if err := conn.WriteJSON(frame); err != nil {
			inv.logger.Printf("stream %s write failed: %v", queryID, err)
			return false
		}
		return true
	}

	if !known {
		send(map[string]any{"error": "unknown query id " + queryID})
		return
	}
	if attached {
		if !send(map[string]any{
			"phase":   "info",
			"message": "investigation already in progress, attaching to live stream",
		}) {
			return
		}
	}

	steps := []struct {
		phase, agent, message string
	}{
		{"routing", "router", "matching question against agent capabilities"},
		{"perceive", "site-ops", "pulling enrollment, deviation and query metrics"},
		{"reason", "site-ops", "isolating the dominant operational signal"},
		{"plan", "site-ops", "selecting drill-down comparisons"},
		{"act", "site-ops", "running comparisons across sites and vendors"},
		{"reflect", "site-ops", "checking the evidence supports one explanation"},
		{"synthesize", "synthesizer", "composing the final answer"},
	}
	for _, step := range steps {
		time.Sleep(stepDelay)
		if step.phase == "act" && strings.Contains(strings.ToLower(question), "fail") {
			send(map[string]any{"error": "agent pipeline failed while gathering evidence"})
			return
		}
		if !send(map[string]any{"phase": step.phase, "agent_id": step.agent, "message": step.message}) {
			return
		}
	}

	time.Sleep(stepDelay)
	send(map[string]any{
		"phase":    "complete",
		"agent_id": "synthesizer",
		"synthesis": map[string]any{
			"answer":     "Site S-204 stalled because its study coordinator left in June and screening visits were never rebooked.",
			"confidence": 0.87,
			"key_findings": []string{
				"S-204 screening visits stopped on 2026-06-12",
				"the site reported the coordinator departure the same week",
				"no other site shows a comparable enrollment break",
			},
			"recommendations": []string{
				"arrange interim coordinator coverage through the CRO",
				"rebook the nine cancelled screening visits",
			},
		},
		"agent_outputs": map[string]any{
			"site-ops": map[string]any{"sites_compared": 6, "signals_checked": 14},
		},
	})
	inv.logger.Printf("investigation %s completed", queryID)
}
