package genome

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func swapTransport(t *testing.T, fn roundTripFunc) {
	t.Helper()
	saved := httpClient
	httpClient = &http.Client{Transport: fn}
	t.Cleanup(func() { httpClient = saved })
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestSummary(t *testing.T) {
	swapTransport(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/genome/226186.12" {
			t.Errorf("request path = %q", req.URL.Path)
		}
		return jsonResponse(http.StatusOK,
			`{"genome_id":"226186.12","genome_name":"Bacteroides thetaiotaomicron VPI-5482","gc_content":42.9}`), nil
	})

	var c Client
	summary, err := c.Summary(context.Background(), "226186.12")
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if summary["genome_name"] != "Bacteroides thetaiotaomicron VPI-5482" {
		t.Errorf("genome name = %v", summary["genome_name"])
	}
}

func TestSummaryNotFound(t *testing.T) {
	swapTransport(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})

	var c Client
	_, err := c.Summary(context.Background(), "999999.99")
	if err == nil || !strings.Contains(err.Error(), "999999.99 not found") {
		t.Fatalf("Summary returned %v, want not found error", err)
	}
}

func TestFeaturesPagesThroughResults(t *testing.T) {
	page := func(start int, docs string) string {
		return fmt.Sprintf(`{"response":{"numFound":3,"start":%d,"docs":[%s]}}`, start, docs)
	}
	doc := func(id, ftype, annotation string) string {
		return fmt.Sprintf(`{"patric_id":%q,"feature_type":%q,"annotation":%q,"aa_sequence":"MKLV"}`,
			id, ftype, annotation)
	}
	calls := 0
	swapTransport(t, func(req *http.Request) (*http.Response, error) {
		calls++
		query := req.URL.Query()
		if query.Get("q") != "genome_id:226186.12" {
			t.Errorf("query = %q", query.Get("q"))
		}
		switch query.Get("start") {
		case "0":
			return jsonResponse(http.StatusOK, page(0,
				doc("fig|226186.12.peg.1", "CDS", "PATRIC")+","+
					doc("fig|226186.12.src.1", "source", "PATRIC"))), nil
		case "2":
			return jsonResponse(http.StatusOK, page(2,
				doc("fig|226186.12.peg.2", "CDS", "RefSeq"))), nil
		default:
			t.Errorf("unexpected start = %q", query.Get("start"))
			return jsonResponse(http.StatusOK, page(4, "")), nil
		}
	})

	var c Client
	features, err := c.Features(context.Background(), "226186.12", "PATRIC")
	if err != nil {
		t.Fatalf("Features returned error: %v", err)
	}
	if calls != 2 {
		t.Errorf("made %d queries, want 2", calls)
	}
	if len(features) != 1 {
		t.Fatalf("got %d features, want 1 after filtering", len(features))
	}
	if features[0].PatricID != "fig|226186.12.peg.1" {
		t.Errorf("feature ID = %q", features[0].PatricID)
	}
}

func TestFeaturesNoneFound(t *testing.T) {
	swapTransport(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"response":{"numFound":0,"docs":[]}}`), nil
	})

	var c Client
	_, err := c.Features(context.Background(), "226186.12", "PATRIC")
	if err == nil || !strings.Contains(err.Error(), "no features found") {
		t.Fatalf("Features returned %v, want no features error", err)
	}
}

func TestFeaturesBadAnnotation(t *testing.T) {
	var c Client
	if _, err := c.Features(context.Background(), "226186.12", "prokka"); err == nil {
		t.Fatal("Features accepted an unknown annotation")
	}
}

func TestWriteProteinFasta(t *testing.T) {
	features := []Feature{
		{PatricID: "fig|226186.12.peg.1", Annotation: "PATRIC", AASequence: "MKLV"},
		{PatricID: "fig|226186.12.rna.1", Annotation: "PATRIC"},
		{ProteinID: "NP_000001.1", Annotation: "RefSeq", AASequence: "MTTA"},
	}
	filename := filepath.Join(t.TempDir(), "proteins.fasta")
	n, err := WriteProteinFasta(features, filename)
	if err != nil {
		t.Fatalf("WriteProteinFasta returned error: %v", err)
	}
	if n != 2 {
		t.Errorf("wrote %d sequences, want 2", n)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	want := ">fig|226186.12.peg.1\nMKLV\n>NP_000001.1\nMTTA\n"
	if string(data) != want {
		t.Errorf("file content:\n%s", data)
	}
}

func TestWriteDNAFasta(t *testing.T) {
	features := []Feature{
		{PatricID: "fig|226186.12.peg.1", Annotation: "PATRIC", NASequence: "ATGC"},
		{RefseqLocusTag: "BT_0001", Annotation: "RefSeq", NASequence: "GGTT"},
	}
	filename := filepath.Join(t.TempDir(), "dna.fasta")
	n, err := WriteDNAFasta(features, filename)
	if err != nil {
		t.Fatalf("WriteDNAFasta returned error: %v", err)
	}
	if n != 2 {
		t.Errorf("wrote %d sequences, want 2", n)
	}
	data, _ := os.ReadFile(filename)
	if !strings.Contains(string(data), ">BT_0001\nGGTT\n") {
		t.Errorf("file content:\n%s", data)
	}
}
