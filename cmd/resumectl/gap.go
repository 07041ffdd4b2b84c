package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"campus-ml-go/internal/analysis"
	"campus-ml-go/internal/resume"

	"github.com/spf13/cobra"
)

var (
	gapHave []string
	gapNeed []string
)

var gapCmd = &cobra.Command{
	Use:   "gap",
	Short: "比较已有技能与岗位要求",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(gapNeed) == 0 {
			return fmt.Errorf("必须通过 --need 指定岗位要求的技能")
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(analysis.AnalyzeSkillGap(gapHave, gapNeed))
	},
}

var lexiconCmd = &cobra.Command{
	Use:   "lexicon [FILE]",
	Short: "列出技能词库",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lexicon := resume.DefaultLexicon()
		if len(args) == 1 {
			var err error
			if lexicon, err = resume.LoadLexiconFile(args[0]); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lexicon.Phrases(), "\n"))
		return err
	},
}

func init() {
	gapCmd.Flags().StringSliceVar(&gapHave, "have", nil, "已有技能，逗号分隔")
	gapCmd.Flags().StringSliceVar(&gapNeed, "need", nil, "岗位要求技能，逗号分隔")
	rootCmd.AddCommand(gapCmd, lexiconCmd)
}
