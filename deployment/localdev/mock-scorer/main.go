package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
)

// Stand-in for an MLflow model server during local development. It accepts
// both the dataframe_split JSON payload and CSV bodies, and can emulate the
// different response shapes real scorers produce.
func main() {
	addr := flag.String("addr", ":5000", "listen address")
	shape := flag.String("shape", "object", "response shape: object, list, or bare")
	quality := flag.Int("quality", 6, "quality label returned for every row")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/invocations", func(w http.ResponseWriter, r *http.Request) {
		rows, err := countRows(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(buildResponse(*shape, rows, *quality)); err != nil {
			log.Printf("encode response: %v", err)
		}
	})

	log.Printf("mock scorer listening on %s (shape=%s quality=%d)", *addr, *shape, *quality)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

func countRows(r *http.Request) (int, error) {
	defer r.Body.Close()

	if strings.Contains(r.Header.Get("Content-Type"), "text/csv") {
		records, err := csv.NewReader(r.Body).ReadAll()
		if err != nil {
			return 0, fmt.Errorf("parse csv: %w", err)
		}
		if len(records) == 0 {
			return 0, fmt.Errorf("empty csv body")
		}
		return len(records) - 1, nil
	}

	var payload struct {
		DataframeSplit struct {
			Data [][]any `json:"data"`
		} `json:"dataframe_split"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("parse json: %w", err)
	}
	return len(payload.DataframeSplit.Data), nil
}

func buildResponse(shape string, rows, quality int) any {
	switch shape {
	case "list":
		preds := make([]int, rows)
		for i := range preds {
			preds[i] = quality
		}
		return map[string]any{"predictions": preds}
	case "bare":
		preds := make([]int, rows)
		for i := range preds {
			preds[i] = quality
		}
		return preds
	default:
		preds := make([]map[string]any, rows)
		for i := range preds {
			preds[i] = map[string]any{
				"predict":                     quality,
				fmt.Sprintf("p%d", quality):   0.7,
				fmt.Sprintf("p%d", quality-1): 0.2,
				fmt.Sprintf("p%d", quality+1): 0.1,
			}
		}
		return map[string]any{"predictions": preds}
	}
}
