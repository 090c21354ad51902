package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/discountlens/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Discountlens configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "input_path: %s\n", c.InputPath)
		fmt.Fprintf(out, "output_image_path: %s\n", c.OutputImagePath)
		fmt.Fprintf(out, "significance_threshold: %g\n", c.SignificanceThreshold)
		if c.FieldDiscountRate != "" {
			fmt.Fprintf(out, "field_discount_rate: %s\n", c.FieldDiscountRate)
		}
		if c.FieldSalesAmount != "" {
			fmt.Fprintf(out, "field_sales_amount: %s\n", c.FieldSalesAmount)
		}
		if c.FieldCategory != "" {
			fmt.Fprintf(out, "field_category: %s\n", c.FieldCategory)
		}
		if c.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", c.Delimiter)
		}
		if c.Sheet != "" {
			fmt.Fprintf(out, "sheet: %s\n", c.Sheet)
		}
		fmt.Fprintf(out, "head_rows: %d\n", c.HeadRows)
		fmt.Fprintf(out, "language: %s\n", c.Language)
		fmt.Fprintf(out, "dpi: %d\n", c.DPI)
		fmt.Fprintf(out, "image_size_in: %gx%g\n", c.ImageWidthIn, c.ImageHeightIn)
		if c.FontFile != "" {
			fmt.Fprintf(out, "font_file: %s\n", c.FontFile)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c := currentConfig()
		if err := setKey(c, key, val); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setKey(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "input_path":
		c.InputPath = val
	case "output_image_path":
		c.OutputImagePath = val
	case "significance_threshold":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for significance_threshold: %w", err)
		}
		c.SignificanceThreshold = f
	case "field_discount_rate":
		c.FieldDiscountRate = val
	case "field_sales_amount":
		c.FieldSalesAmount = val
	case "field_category":
		c.FieldCategory = val
	case "delimiter":
		c.Delimiter = val
	case "sheet":
		c.Sheet = val
	case "head_rows":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for head_rows: %w", err)
		}
		c.HeadRows = i
	case "language":
		c.Language = val
	case "dpi":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for dpi: %w", err)
		}
		c.DPI = i
	case "image_width_in", "image_height_in":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for %s: %w", key, err)
		}
		if key == "image_width_in" {
			c.ImageWidthIn = f
		} else {
			c.ImageHeightIn = f
		}
	case "font_file":
		c.FontFile = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
