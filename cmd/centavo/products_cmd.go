package main

import (
	"fmt"

	"github.com/Urientropy/centavo/internal/utils"
	"github.com/Urientropy/centavo/products"
	"github.com/Urientropy/centavo/resources"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newProductsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse the product catalogue",
	}

	var flags listFlags
	var category string
	list := &cobra.Command{
		Use:   "list",
		Short: "List products",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			if category != "" && category != products.AllCategories {
				a.Products.Products.UseFilter(category)
			}
			if err := fetch(cmd.Context(), a.Products.Products, flags); err != nil {
				return err
			}
			renderPage(cmd.OutOrStdout(), a.Products.Products.State(),
				[]any{"ID", "Name", "Category", "Price", "Stock"},
				func(p products.Product) table.Row {
					return table.Row{p.ID, p.Name, p.Category, p.SalePrice, p.Stock}
				})
			return nil
		},
	}
	flags.register(list)
	list.Flags().StringVarP(&category, "category", "c", "", "only this category")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show a product, its recipe and its stock history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.Products.FetchProduct(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s%s%s (%s)\nprice %s, stock %s\n", Cyan, p.Name, ResetColor, p.Category, p.SalePrice, p.Stock)
			if p.Description != "" {
				fmt.Fprintln(out, p.Description)
			}

			recipe := newTable(out, "Raw material", "Quantity", "Unit")
			for _, ing := range p.RecipeIngredients {
				recipe.AppendRow(table.Row{ing.Name, ing.Quantity, ing.UnitOfMeasure})
			}
			recipe.Render()

			if evolution := a.Products.FetchStockEvolution(cmd.Context(), id); evolution != nil && len(evolution.Labels) > 0 {
				history := newTable(out, "Month", "Produced")
				for i, label := range evolution.Labels {
					if i < len(evolution.Data) {
						history.AppendRow(table.Row{label, evolution.Data[i]})
					}
				}
				history.Render()
			}
			return nil
		},
	}

	categories := &cobra.Command{
		Use:   "categories",
		Short: "List the product categories in use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			renderList(cmd.OutOrStdout(), "Category", a.Products.FetchCategories(cmd.Context()))
			return nil
		},
	}

	var name, newCategory, price string
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Change the name, category or price of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			set := cmd.Flags().Changed
			patch := products.ProductPatch{
				Name:      utils.PtrIf(set("name"), name),
				Category:  utils.PtrIf(set("category"), newCategory),
				SalePrice: utils.PtrIf(set("price"), resources.Decimal(price)),
			}
			p, err := a.Products.UpdateProduct(cmd.Context(), id, patch, products.ContextDetail)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sUpdated%s %s (%s), price %s\n", Green, ResetColor, p.Name, p.Category, p.SalePrice)
			return nil
		},
	}
	update.Flags().StringVar(&name, "name", "", "new name")
	update.Flags().StringVar(&newCategory, "category", "", "new category")
	update.Flags().StringVar(&price, "price", "", "new sale price")

	cmd.AddCommand(list, show, update, categories)
	return cmd
}
