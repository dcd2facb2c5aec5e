// seed_taxonomy.go — standalone script to seed sectors, categories, dimensions
// and maturity descriptors from a YAML file via the gemba API.
//
// Usage:
//
//	go run scripts/seed_taxonomy.go -file taxonomy.yaml -api http://localhost:8700 -token $GEMBA_ADMIN_TOKEN
//
// File format:
//
//	categories:
//	  - name: Flow
//	    dimensions: [Pull Systems, Takt Alignment]
//	sectors:
//	  - name: Automotive
//	    descriptors:
//	      - dimension: Pull Systems
//	        levels:
//	          1: "No pull signals; push scheduling throughout"
//	          5: "Plant-wide kanban with supplier integration"
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"
)

type taxonomyFile struct {
	Categories []struct {
		Name       string   `yaml:"name"`
		Dimensions []string `yaml:"dimensions"`
	} `yaml:"categories"`
	Sectors []struct {
		Name        string `yaml:"name"`
		Descriptors []struct {
			Dimension string         `yaml:"dimension"`
			Levels    map[int]string `yaml:"levels"`
		} `yaml:"descriptors"`
	} `yaml:"sectors"`
}

type seeder struct {
	apiURL string
	token  string
	client *http.Client
	dryRun bool
}

func main() {
	filePath := flag.String("file", "taxonomy.yaml", "path to taxonomy YAML file")
	apiURL := flag.String("api", "http://localhost:8700", "gemba API base URL")
	token := flag.String("token", os.Getenv("GEMBA_ADMIN_TOKEN"), "admin bearer token")
	dryRun := flag.Bool("dry-run", false, "print planned requests without posting")
	flag.Parse()

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatalf("read %s: %v", *filePath, err)
	}
	var tf taxonomyFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		log.Fatalf("parse %s: %v", *filePath, err)
	}

	s := &seeder{apiURL: *apiURL, token: *token, client: &http.Client{}, dryRun: *dryRun}

	// Categories and their dimensions first, so descriptors can resolve
	// dimension ids by name.
	dimensionIDs := map[string]string{}
	for _, cat := range tf.Categories {
		catID, err := s.post("/api/v1/categories", map[string]string{"name": cat.Name})
		if err != nil {
			log.Fatalf("create category %q: %v", cat.Name, err)
		}
		log.Printf("category %q -> %s", cat.Name, catID)

		for _, dim := range cat.Dimensions {
			dimID, err := s.post("/api/v1/dimensions", map[string]string{"name": dim, "category_id": catID})
			if err != nil {
				log.Fatalf("create dimension %q: %v", dim, err)
			}
			dimensionIDs[dim] = dimID
			log.Printf("dimension %q -> %s", dim, dimID)
		}
	}

	created := 0
	for _, sector := range tf.Sectors {
		sectorID, err := s.post("/api/v1/sectors", map[string]string{"name": sector.Name})
		if err != nil {
			log.Fatalf("create sector %q: %v", sector.Name, err)
		}
		log.Printf("sector %q -> %s", sector.Name, sectorID)

		for _, desc := range sector.Descriptors {
			dimID, ok := dimensionIDs[desc.Dimension]
			if !ok {
				log.Fatalf("sector %q references unknown dimension %q", sector.Name, desc.Dimension)
			}
			for level, text := range desc.Levels {
				body := map[string]interface{}{
					"dimension_id": dimID,
					"level":        level,
					"description":  text,
				}
				if _, err := s.put("/api/v1/sectors/"+sectorID+"/descriptors", body); err != nil {
					log.Fatalf("descriptor %s/%s level %d: %v", sector.Name, desc.Dimension, level, err)
				}
				created++
			}
		}
	}

	log.Printf("done: %d descriptors seeded", created)
}

func (s *seeder) post(path string, body interface{}) (string, error) {
	return s.send("POST", path, body)
}

func (s *seeder) put(path string, body interface{}) (string, error) {
	return s.send("PUT", path, body)
}

func (s *seeder) send(method, path string, body interface{}) (string, error) {
	payload, _ := json.Marshal(body)
	if s.dryRun {
		fmt.Printf("%s %s %s\n", method, path, payload)
		return "dry-run", nil
	}

	req, err := http.NewRequest(method, s.apiURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		ID    string `json:"id"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, out.Error)
	}
	return out.ID, nil
}
