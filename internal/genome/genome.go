// Package genome retrieves genome summaries and annotated features from the
// PATRIC data API.
package genome

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"gopkg.in/cheggaaa/pb.v1"

	"seedtools/internal/fasta"
)

// DefaultURL is the production PATRIC data API endpoint.
const DefaultURL = "https://www.patricbrc.org/api/"

// featurePageSize is the number of feature documents requested per query.
const featurePageSize = 10000

// httpClient performs requests; tests may replace it with a mock transport.
var httpClient = &http.Client{Timeout: 5 * time.Minute}

// Client queries the PATRIC data API. The API requires no authentication for
// public genomes.
type Client struct {
	// URL is the data API endpoint. When empty, DefaultURL is used.
	URL string

	// ShowProgress enables a progress bar on stderr while paging through
	// feature queries.
	ShowProgress bool
}

func (c *Client) baseURL() string {
	if c.URL == "" {
		return DefaultURL
	}
	return c.URL
}

// Summary returns the summary data for a genome. The available keys vary
// with the genome, so the result is a generic map.
func (c *Client) Summary(ctx context.Context, genomeID string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"genome/"+genomeID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("genome ID %s not found", genomeID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("genome summary query returned status %d", resp.StatusCode)
	}
	var summary map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("decode genome summary: %w", err)
	}
	return summary, nil
}

// Feature is one annotated feature from a genome. Fields not reported by the
// API are left at their zero value.
type Feature struct {
	PatricID       string `json:"patric_id"`
	ProteinID      string `json:"protein_id"`
	RefseqLocusTag string `json:"refseq_locus_tag"`
	FeatureType    string `json:"feature_type"`
	Annotation     string `json:"annotation"`
	Product        string `json:"product"`
	AASequence     string `json:"aa_sequence"`
	NASequence     string `json:"na_sequence"`
}

type featurePage struct {
	Response struct {
		NumFound int       `json:"numFound"`
		Docs     []Feature `json:"docs"`
	} `json:"response"`
}

// Features returns the features from the genome annotation. annotation is
// "PATRIC" or "RefSeq". Features of type "source" and features from other
// annotations are filtered out.
func (c *Client) Features(ctx context.Context, genomeID, annotation string) ([]Feature, error) {
	if annotation != "PATRIC" && annotation != "RefSeq" {
		return nil, fmt.Errorf(`annotation must be either "PATRIC" or "RefSeq"`)
	}

	var features []Feature
	var bar *pb.ProgressBar
	defer func() {
		if bar != nil {
			bar.Finish()
		}
	}()

	count := 0
	for {
		page, err := c.featureQuery(ctx, genomeID, count)
		if err != nil {
			return nil, err
		}
		if page.Response.NumFound == 0 {
			return nil, fmt.Errorf("no features found for genome %s", genomeID)
		}
		if c.ShowProgress && bar == nil {
			bar = pb.StartNew(page.Response.NumFound)
		}
		for _, doc := range page.Response.Docs {
			if doc.FeatureType != "source" && doc.Annotation == annotation {
				features = append(features, doc)
			}
			if bar != nil {
				bar.Increment()
			}
		}
		count += len(page.Response.Docs)
		if count >= page.Response.NumFound || len(page.Response.Docs) == 0 {
			break
		}
	}
	return features, nil
}

func (c *Client) featureQuery(ctx context.Context, genomeID string, start int) (*featurePage, error) {
	query := url.Values{}
	query.Set("q", "genome_id:"+genomeID)
	query.Set("rows", fmt.Sprint(featurePageSize))
	query.Set("start", fmt.Sprint(start))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL()+"genome_feature/?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/solrquery+x-www-form-urlencoded")
	req.Header.Set("Accept", "application/solr+json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("feature query returned status %d: %s", resp.StatusCode, body)
	}
	var page featurePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode feature query response: %w", err)
	}
	return &page, nil
}

// proteinRecords converts features with amino acid sequences to records
// keyed by the ID appropriate for the annotation.
func proteinRecords(features []Feature) []fasta.FastaRecord {
	records := make([]fasta.FastaRecord, 0, len(features))
	for _, f := range features {
		if f.AASequence == "" {
			continue
		}
		id := f.PatricID
		if f.Annotation == "RefSeq" {
			id = f.ProteinID
		}
		records = append(records, fasta.FastaRecord{Header: id, Sequence: f.AASequence})
	}
	return records
}

func dnaRecords(features []Feature) []fasta.FastaRecord {
	records := make([]fasta.FastaRecord, 0, len(features))
	for _, f := range features {
		if f.NASequence == "" {
			continue
		}
		id := f.PatricID
		if f.Annotation == "RefSeq" {
			id = f.RefseqLocusTag
		}
		records = append(records, fasta.FastaRecord{Header: id, Sequence: f.NASequence})
	}
	return records
}

// WriteProteinFasta stores the amino acid sequences of the features in a
// fasta file. Features without an amino acid sequence are skipped. Returns
// the number of sequences written.
func WriteProteinFasta(features []Feature, filename string) (int, error) {
	return writeFastaFile(proteinRecords(features), filename)
}

// WriteDNAFasta stores the DNA sequences of the features in a fasta file.
// Features without a DNA sequence are skipped. Returns the number of
// sequences written.
func WriteDNAFasta(features []Feature, filename string) (int, error) {
	return writeFastaFile(dnaRecords(features), filename)
}

func writeFastaFile(records []fasta.FastaRecord, filename string) (int, error) {
	f, err := os.Create(filename)
	if err != nil {
		return 0, err
	}
	n, err := fasta.WriteFasta(f, records)
	if err != nil {
		f.Close()
		return n, err
	}
	return n, f.Close()
}
