package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"planner/internal/prompt"
	"planner/internal/provider"
	"planner/internal/suggest"
)

func suggestCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "suggest [instruction]",
		Short: "Ask the model for edit suggestions and apply them under policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			instruction := strings.TrimSpace(strings.Join(args, " "))
			if instruction == "" {
				instruction = "Review my task list and suggest improvements."
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if strings.TrimSpace(a.cfg.Provider.APIKey) == "" {
				return fmt.Errorf("no API key configured (set PLANNER_API_KEY or provider.api_key)")
			}
			svc := provider.NewOpenAIProvider(provider.OpenAIConfig{
				BaseURL:    a.cfg.Provider.BaseURL,
				APIKey:     a.cfg.Provider.APIKey,
				Model:      a.cfg.Provider.Model,
				TimeoutMS:  a.cfg.Provider.TimeoutMS,
				MaxRetries: a.cfg.Provider.MaxRetries,
			})
			return runSuggest(a, svc, instruction, yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Approve every review-tier op without prompting")
	return cmd
}

// runSuggest 完整建议管线：取回复 → 抽取载荷 → 结构校验 → 风险分层 →
// 自动档静默应用，确认档逐条人工审批。任一阶段失败都不碰状态。
// runSuggest is the full pipeline: fetch reply → extract payload → validate →
// tier → apply the auto bucket silently and walk the review bucket
// interactively. A failure at any stage mutates nothing.
func runSuggest(a *app, svc provider.CompletionService, instruction string, approveAll bool) error {
	builder := prompt.NewBuilder(prompt.DefaultTokenizer(), a.cfg.Suggest.ContextTokenLimit)
	user := builder.User(instruction, a.applier.View(), a.base.Pillars)

	raw, err := svc.Complete(context.Background(), builder.System(), user)
	if err != nil {
		return fmt.Errorf("suggestion service unavailable: %w", err)
	}

	payload, err := suggest.Parse(raw)
	if err != nil {
		return fmt.Errorf("suggestion discarded: %w", err)
	}

	printSummary(payload.Summary)

	split := suggest.Classify(payload.Ops)
	if !a.cfg.Suggest.AutoApply {
		// 自动应用被关闭时一切都走确认 / with auto-apply off everything is reviewed
		split.Review = append(split.Auto, split.Review...)
		split.Auto = nil
	}

	if len(split.Auto) > 0 {
		n := a.applier.Apply(split.Auto)
		fmt.Println(autoStyle.Render(fmt.Sprintf("applied %d change(s) automatically", n)))
	}

	if len(split.Review) == 0 {
		return nil
	}
	approved, err := reviewOps(split.Review, approveAll)
	if err != nil {
		return err
	}
	if len(approved) > 0 {
		n := a.applier.Apply(approved)
		fmt.Println(autoStyle.Render(fmt.Sprintf("applied %d confirmed change(s)", n)))
	}
	return nil
}

// reviewOps 逐条走确认：y 应用，n 跳过，a 余下全部应用。
// reviewOps walks the review bucket: y applies, n skips, a applies the rest.
func reviewOps(ops []suggest.Op, approveAll bool) ([]suggest.Op, error) {
	if approveAll {
		return ops, nil
	}

	rl, err := readline.New(reviewStyle.Render("apply? [y/n/a] "))
	if err != nil {
		return nil, fmt.Errorf("line editor unavailable: %w", err)
	}
	defer rl.Close()

	var approved []suggest.Op
	for i, op := range ops {
		fmt.Printf("\n%d/%d %s\n", i+1, len(ops), renderOp(op))
		if approveAll {
			approved = append(approved, op)
			continue
		}
		line, err := rl.Readline()
		if err != nil {
			// Ctrl-C / EOF 视为放弃剩余条目 / treat as declining the rest
			return approved, nil
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			approved = append(approved, op)
		case "a", "all":
			approveAll = true
			approved = append(approved, op)
		}
	}
	return approved, nil
}

// printSummary 用 glamour 渲染模型给出的 Markdown 摘要
// printSummary renders the model's markdown summary with glamour
func printSummary(summary string) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return
	}
	if out, err := glamour.Render(summary, "auto"); err == nil {
		fmt.Print(out)
	} else {
		fmt.Println(summary)
	}
}
