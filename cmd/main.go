package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/hadv/yitam-admin-sub000/internal/types"
	cfgPkg "github.com/hadv/yitam-admin-sub000/pkg/config"
	"github.com/hadv/yitam-admin-sub000/pkg/continuity"
	"github.com/hadv/yitam-admin-sub000/pkg/embedding"
	"github.com/hadv/yitam-admin-sub000/pkg/llm"
	"github.com/hadv/yitam-admin-sub000/pkg/parser"
	"github.com/hadv/yitam-admin-sub000/pkg/pipeline"
	"github.com/hadv/yitam-admin-sub000/pkg/store"
)

type Flags struct {
	ConfigPath string
	File       string
	Name       string
	Domains    string
	Transcript string
	Prefix     string
	Query      string
	Limit      int
	List       bool
	ListDoc    string
	PageSize   int
}

func main() {
	flags := parseFlags()

	if err := run(flags); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Flags {
	var flags Flags

	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&flags.File, "file", "", "Document file to ingest")
	flag.StringVar(&flags.Name, "name", "", "Document name (defaults to the file name)")
	flag.StringVar(&flags.Domains, "domains", "", "Comma-separated domain tags")
	flag.StringVar(&flags.Transcript, "transcript", "", "Transcript file to ingest as a stream")
	flag.StringVar(&flags.Prefix, "prefix", "", "ID prefix for transcript chunks")
	flag.StringVar(&flags.Query, "query", "", "Search query")
	flag.IntVar(&flags.Limit, "limit", 5, "Maximum search results")
	flag.BoolVar(&flags.List, "list", false, "List stored chunks")
	flag.StringVar(&flags.ListDoc, "list-doc", "", "Restrict listing to one document")
	flag.IntVar(&flags.PageSize, "page-size", 20, "Listing page size")
	flag.Parse()

	return flags
}

func run(flags Flags) error {
	config, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s: %s", e.Field, e.Message)
		}
		return fmt.Errorf("invalid configuration")
	}

	ctx := context.Background()

	assembler, cleanup, err := buildAssembler(ctx, config)
	if err != nil {
		return err
	}
	defer cleanup()

	switch {
	case flags.File != "":
		return ingestFile(ctx, assembler, config, flags)
	case flags.Transcript != "":
		return ingestTranscript(ctx, assembler, flags)
	case flags.Query != "":
		return search(ctx, assembler, flags)
	case flags.List:
		return list(ctx, assembler, flags)
	default:
		flag.Usage()
		return fmt.Errorf("nothing to do: pass -file, -transcript, -query, or -list")
	}
}

// buildAssembler wires the collaborators. A down database is not fatal
// here: ingest degrades to the in-memory mirror instead.
func buildAssembler(ctx context.Context, config *cfgPkg.Config) (*pipeline.ChunkAssembler, func(), error) {
	generator, err := llm.NewWithConfig(llm.GeneratorConfig{
		Model:       config.LLM.Model,
		Temperature: config.LLM.Temperature,
		MaxTokens:   config.LLM.MaxTokens,
		BaseURL:     config.LLM.BaseURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize generator: %v", err)
	}

	embedder, err := embedding.NewEmbedderWithConfig(embedding.EmbedderConfig{
		Model:     config.Embedding.Model,
		BaseURL:   config.Embedding.BaseURL,
		Dimension: config.Embedding.Dimension,
		RateLimit: config.Embedding.RateLimit,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedder: %v", err)
	}
	splitter := embedding.NewSplitter(embedder, config.Embedding.MaxPayload)

	repair := continuity.NewWithConfig(continuity.Config{
		AIEnabled:     config.Continuity.AIEnabled,
		AITimeout:     time.Duration(config.Continuity.AITimeoutSeconds) * time.Second,
		MaxAIFailures: config.Continuity.MaxAIFailures,
	}, generator)

	var primary types.VectorStore
	cleanup := func() {}
	vs, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
		ConnString: config.Database.URL,
		TableName:  config.Database.TableName,
		VectorDim:  config.Database.VectorDim,
		BatchSize:  config.Database.BatchSize,
	})
	if err != nil {
		color.Yellow("vector store unavailable, continuing with in-memory fallback: %v", err)
		primary = store.NewMemoryStore()
	} else {
		primary = vs
		cleanup = vs.Close
	}

	assembler := pipeline.NewWithConfig(types.PipelineConfig{
		ChunksPerPage:     config.Pipeline.ChunksPerPage,
		ChunkOverlap:      config.Pipeline.ChunkOverlap,
		GenerateTitles:    config.Pipeline.GenerateTitles,
		GenerateSummaries: config.Pipeline.GenerateSummaries,
		RespectBoundaries: config.Pipeline.RespectBoundaries,
		PreserveHeadings:  config.Pipeline.PreserveHeadings,
	}, repair, splitter, generator, primary)

	return assembler, cleanup, nil
}

func ingestFile(ctx context.Context, assembler *pipeline.ChunkAssembler, config *cfgPkg.Config, flags Flags) error {
	data, err := os.ReadFile(flags.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %v", flags.File, err)
	}

	name := flags.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(flags.File), filepath.Ext(flags.File))
	}
	mimeType := mime.TypeByExtension(filepath.Ext(flags.File))

	p := parser.NewWithConfig(parser.ParserConfig{})
	pages, err := p.ParseToPages(data, mimeType)
	if err != nil {
		return err
	}
	color.Blue("\nIngesting %s: %d pages\n", name, len(pages))

	bar := getProgressBar(len(pages), "Processing pages...")
	done := make(chan struct{})
	go trackProgress(bar, len(pages), done)

	result, err := assembler.IngestPages(ctx, pipeline.DocumentMeta{
		DocumentName: name,
		SourceFile:   flags.File,
		Domains:      splitDomains(flags.Domains),
	}, pages)
	close(done)
	bar.Finish()
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

func ingestTranscript(ctx context.Context, assembler *pipeline.ChunkAssembler, flags Flags) error {
	if flags.Prefix == "" {
		return fmt.Errorf("-transcript requires -prefix")
	}
	data, err := os.ReadFile(flags.Transcript)
	if err != nil {
		return fmt.Errorf("failed to read %s: %v", flags.Transcript, err)
	}

	name := flags.Name
	if name == "" {
		name = flags.Prefix
	}

	result, err := assembler.IngestTranscript(ctx, flags.Prefix, pipeline.DocumentMeta{
		DocumentName: name,
		SourceFile:   flags.Transcript,
		Domains:      splitDomains(flags.Domains),
	}, string(data))
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

func search(ctx context.Context, assembler *pipeline.ChunkAssembler, flags Flags) error {
	spinner := getSpinner("Searching...")
	results, err := assembler.Search(ctx, flags.Query, flags.Limit)
	spinner.Finish()
	fmt.Print("\r")
	if err != nil {
		return fmt.Errorf("search failed: %v", err)
	}

	if len(results) == 0 {
		color.Yellow("No results.")
		return nil
	}
	for i, r := range results {
		color.Cyan("\n%d. %s (score %.3f)", i+1, r.ID, r.Score)
		if r.Title != "" {
			color.Green("   %s", r.Title)
		}
		fmt.Printf("   %s\n", snippet(r.Content, 200))
	}
	return nil
}

func list(ctx context.Context, assembler *pipeline.ChunkAssembler, flags Flags) error {
	filter := types.Filter{DocumentName: flags.ListDoc}
	offset := 0
	total := 0
	for {
		chunks, err := assembler.Scroll(ctx, filter, flags.PageSize, offset)
		if err != nil {
			return fmt.Errorf("listing failed: %v", err)
		}
		if len(chunks) == 0 {
			break
		}
		for _, c := range chunks {
			fmt.Printf("%s\t%s\t%s\n", c.ID, c.DocumentName, snippet(c.Content, 80))
		}
		total += len(chunks)
		offset += len(chunks)
		if len(chunks) < flags.PageSize {
			break
		}
	}
	color.Green("\n%d chunks\n", total)
	return nil
}

func printResult(result pipeline.Result) {
	color.Green("\n✓ Ingested %d pages into %d chunks\n", result.Pages, result.Chunks)
	if result.RepairedPages > 0 {
		color.Blue("  %d page boundaries repaired\n", result.RepairedPages)
	}
	if result.ReplacedChunks > 0 {
		color.Blue("  %d stale chunks replaced\n", result.ReplacedChunks)
	}
	if result.Degraded {
		color.Yellow("  completed in degraded mode; some dependencies were unavailable\n")
	}
}

func splitDomains(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "…"
}

func trackProgress(bar *progressbar.ProgressBar, total int, done <-chan struct{}) {
	// The assembler reports no per-page callback; animate elapsed time
	// until the run completes.
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			bar.Set(total)
			return
		case <-ticker.C:
			bar.Add(0)
		}
	}
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
