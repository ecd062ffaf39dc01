// smoke 对运行中的服务执行一次完整流程：上传、生成、下载产物、可追溯性图
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

var client = &http.Client{Timeout: 60 * time.Second}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Service base URL")
	file := flag.String("file", "", "Requirements document to upload")
	mode := flag.String("mode", "optimized", "Generation mode")
	async := flag.Bool("async", false, "Run generation through the task queue")
	out := flag.String("out", ".", "Directory for downloaded artifacts")
	flag.Parse()

	if *file == "" {
		fmt.Println("Usage: smoke -file requirements.docx [-url http://localhost:8080]")
		os.Exit(2)
	}

	docID, err := upload(*baseURL, *file)
	if err != nil {
		fail("upload", err)
	}
	fmt.Printf("Uploaded %s as %s\n", *file, docID)

	var job struct {
		JobID     string            `json:"job_id"`
		Status    string            `json:"status"`
		Error     string            `json:"error"`
		Artifacts map[string]string `json:"artifacts"`
	}
	if err := postJSON(*baseURL+"/api/generations", map[string]interface{}{
		"document_id": docID,
		"mode":        *mode,
		"async":       *async,
	}, &job); err != nil {
		fail("generate", err)
	}

	// 异步任务轮询直到结束
	for job.Status == "pending" || job.Status == "running" {
		time.Sleep(time.Second)
		if err := getJSON(*baseURL+"/api/generations/"+job.JobID, &job); err != nil {
			fail("poll", err)
		}
	}
	fmt.Printf("Job %s finished with status %s\n", job.JobID, job.Status)
	if job.Status != "completed" {
		fail("generate", fmt.Errorf("job failed: %s", job.Error))
	}

	for kind, path := range job.Artifacts {
		name, err := download(*baseURL+path, *out)
		if err != nil {
			fail("download "+kind, err)
		}
		fmt.Printf("Saved %s artifact to %s\n", kind, name)
	}

	var graph struct {
		Nodes []json.RawMessage `json:"nodes"`
		Links []json.RawMessage `json:"links"`
	}
	if err := postJSON(*baseURL+"/api/traceability", map[string]interface{}{
		"document_id": docID,
		"mode":        *mode,
	}, &graph); err != nil {
		fail("traceability", err)
	}
	fmt.Printf("Traceability graph: %d nodes, %d links\n", len(graph.Nodes), len(graph.Links))
}

func upload(baseURL, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	resp, err := client.Post(baseURL+"/api/documents", writer.FormDataContentType(), body)
	if err != nil {
		return "", err
	}
	var info struct {
		FileID string `json:"file_id"`
	}
	if err := decode(resp, &info); err != nil {
		return "", err
	}
	return info.FileID, nil
}

func postJSON(url string, payload, v interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	return decode(resp, v)
}

func getJSON(url string, v interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	return decode(resp, v)
}

// decode 解析统一响应结构，非0错误码作为错误返回
func decode(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("status %d: %w", resp.StatusCode, err)
	}
	if env.Code != 0 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, env.Message)
	}
	return json.Unmarshal(env.Data, v)
}

func download(url, dir string) (string, error) {
	resp, err := client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	name := "artifact"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	target := filepath.Join(dir, filepath.Base(name))

	f, err := os.Create(target)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", err
	}
	return target, nil
}

func fail(step string, err error) {
	fmt.Printf("Smoke test failed at %s: %v\n", step, err)
	os.Exit(1)
}
