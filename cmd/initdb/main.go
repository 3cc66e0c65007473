// Command initdb 强制重建向量索引：读取全部语料、重新计算向量并写入索引。
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"docqa-go/internal/bootstrap"
	"docqa-go/internal/config"
	"docqa-go/pkg/log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Rebuild the vector index from the corpus",
	Long: `Reads every document in the configured corpus, recomputes embeddings
and replaces the contents of the vector index.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runInit,
}

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a single question against the current index",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "path to config file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "overall timeout")
	rootCmd.AddCommand(queryCmd)
}

func setup(ctx context.Context) (*bootstrap.App, error) {
	_ = godotenv.Load()
	config.Init(configPath)
	cfg := config.Conf
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	return bootstrap.Build(ctx, cfg)
}

func runInit(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	defer log.Sync()

	log.Info("开始初始化向量索引...")
	app, err := setup(ctx)
	if err != nil {
		return fmt.Errorf("服务初始化失败: %w", err)
	}

	start := time.Now()
	if err := app.Chat.ReloadCorpus(ctx); err != nil {
		return fmt.Errorf("语料加载失败: %w", err)
	}
	size, err := app.Chat.CorpusSize(ctx)
	if err != nil {
		return fmt.Errorf("读取索引大小失败: %w", err)
	}
	log.Infow("向量索引初始化完成", "chunks", size, "elapsed", time.Since(start).String())
	cmd.Printf("Indexed %d chunks in %s\n", size, time.Since(start).Round(time.Millisecond))
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	defer log.Sync()

	app, err := setup(ctx)
	if err != nil {
		return fmt.Errorf("服务初始化失败: %w", err)
	}
	resp, err := app.Chat.SubmitQuery(ctx, args[0], "")
	if err != nil {
		return err
	}

	cmd.Println(resp.Response)
	if len(resp.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, s := range resp.Sources {
			article := "-"
			if s.ArticleNumber != nil {
				article = fmt.Sprint(*s.ArticleNumber)
			}
			cmd.Printf("  [%s] %s (%.3f)\n", article, s.Title, s.RelevanceScore)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
