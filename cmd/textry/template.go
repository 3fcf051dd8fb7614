package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foxzi/textry/internal/app"
	"github.com/foxzi/textry/internal/template"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage message templates",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored templates",
	RunE:  runTemplateList,
}

var templateShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a template and its variables",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateShow,
}

var templateAddCmd = &cobra.Command{
	Use:   "add <name> <content>",
	Short: "Add a new template",
	Args:  cobra.ExactArgs(2),
	RunE:  runTemplateAdd,
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateDelete,
}

func init() {
	templateCmd.AddCommand(templateListCmd, templateShowCmd, templateAddCmd, templateDeleteCmd)
	rootCmd.AddCommand(templateCmd)
}

// openTemplates opens the storage from the configured database path.
func openTemplates() (*template.Storage, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := app.OpenStorage(cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}

	storage, err := template.NewStorage(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return storage, func() { db.Close() }, nil
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	storage, closeDB, err := openTemplates()
	if err != nil {
		return err
	}
	defer closeDB()

	templates, err := storage.List(cmd.Context(), template.ListFilter{})
	if err != nil {
		return err
	}

	for _, t := range templates {
		vars := t.Variables()
		fmt.Printf("%-20s  %d variables", t.Name, len(vars))
		if len(vars) > 0 {
			fmt.Printf("  ({{%s}})", strings.Join(vars, "}}, {{"))
		}
		fmt.Println()
	}
	return nil
}

func runTemplateShow(cmd *cobra.Command, args []string) error {
	storage, closeDB, err := openTemplates()
	if err != nil {
		return err
	}
	defer closeDB()

	tmpl, err := storage.GetByName(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if tmpl == nil {
		return fmt.Errorf("template %q not found", args[0])
	}

	fmt.Printf("Name:      %s\n", tmpl.Name)
	fmt.Printf("Modified:  %s\n", tmpl.LastModified.Format("2006-01-02 15:04:05"))
	fmt.Printf("Variables: %v\n", tmpl.Variables())
	fmt.Printf("\n%s\n", tmpl.Content)
	return nil
}

func runTemplateAdd(cmd *cobra.Command, args []string) error {
	storage, closeDB, err := openTemplates()
	if err != nil {
		return err
	}
	defer closeDB()

	tmpl := &template.Template{Name: args[0], Content: args[1]}
	if err := storage.Create(cmd.Context(), tmpl); err != nil {
		return err
	}

	fmt.Printf("Created template %q\n", tmpl.Name)
	return nil
}

func runTemplateDelete(cmd *cobra.Command, args []string) error {
	storage, closeDB, err := openTemplates()
	if err != nil {
		return err
	}
	defer closeDB()

	tmpl, err := storage.GetByName(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if tmpl == nil {
		fmt.Fprintf(os.Stderr, "template %q not found\n", args[0])
		return nil
	}

	if err := storage.Delete(cmd.Context(), tmpl.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted template %q\n", args[0])
	return nil
}
