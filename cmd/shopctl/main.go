package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rigforge/rigforge/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	authToken string
	cfgFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "shopctl",
	Short: "RigForge storefront CLI",
	Long: `shopctl is the command-line interface for a RigForge storefront.

It lets you browse the component catalog, manage PC builds and your cart,
run checkouts, and post to the community board from the terminal.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.shopctl")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if authToken == "" {
			authToken = viper.GetString("token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.shopctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "RigForge API URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "session token (default from config; set by shopctl login)")

	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(componentsCmd)
	rootCmd.AddCommand(buildsCmd)
	rootCmd.AddCommand(cartCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(versionCmd)
}

func apiClient() *client.Client {
	opts := []client.Option{}
	if authToken != "" {
		opts = append(opts, client.WithToken(authToken))
	}
	return client.New(serverURL, opts...)
}

// saveToken writes the session token into the config file so subsequent
// invocations stay logged in.
func saveToken(token string) error {
	path := cfgFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("locate home dir: %w", err)
		}
		dir := filepath.Join(home, ".shopctl")
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	viper.Set("token", token)
	viper.Set("server_url", serverURL)
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ── auth ─────────────────────────────────────────────────────────────────────

var signupCmd = &cobra.Command{
	Use:   "signup <username> <email> <password>",
	Short: "Create an account (a verification code is emailed to you)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := apiClient().Signup(context.Background(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("Account created for %s (%s).\n", u.Username, u.Email)
		fmt.Printf("Check your email for a verification code, then run:\n")
		fmt.Printf("  shopctl verify %s <code>\n", u.ID)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <user-id> <code>",
	Short: "Confirm the emailed verification code and log in",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := apiClient().VerifyOTP(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		if err := saveToken(token); err != nil {
			return err
		}
		fmt.Println("Email verified. You are logged in.")
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <email> <password>",
	Short: "Log in and store the session token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := apiClient().Login(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		if err := saveToken(token); err != nil {
			return err
		}
		fmt.Println("Logged in.")
		return nil
	},
}

// ── components ───────────────────────────────────────────────────────────────

var componentsCategory string

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "Browse the component catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		comps, err := apiClient().ListComponents(context.Background(), componentsCategory)
		if err != nil {
			return err
		}
		sort.Slice(comps, func(i, j int) bool {
			if comps[i].Category != comps[j].Category {
				return comps[i].Category < comps[j].Category
			}
			return comps[i].Price < comps[j].Price
		})
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tNAME\tPRICE")
		for _, c := range comps {
			fmt.Fprintf(w, "%s\t%s\t$%.2f\n", c.Category, c.Name, c.Price)
		}
		return w.Flush()
	},
}

func init() {
	componentsCmd.Flags().StringVar(&componentsCategory, "category", "", "Filter by category (cpu, gpu, motherboard, ram, storage, psu, case, cooling)")
}

// ── builds ───────────────────────────────────────────────────────────────────

var (
	buildsPage   int
	buildsLimit  int
	buildsFormat string
)

var buildsCmd = &cobra.Command{
	Use:   "builds",
	Short: "Browse and manage PC builds",
}

var buildsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List visible builds, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := apiClient().ListBuilds(context.Background(), buildsPage, buildsLimit)
		if err != nil {
			return err
		}
		if buildsFormat == "json" {
			return printJSON(page)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tBY\tPARTS\tTOTAL\tVIEWS")
		for _, b := range page.Builds {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t$%.2f\t%d\n",
				b.ID, b.Name, b.Username, len(b.Components), b.TotalPrice, b.ViewCount)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\npage %d of %d (%d builds)\n", page.Page, page.Pages, page.Total)
		return nil
	},
}

var buildsGetCmd = &cobra.Command{
	Use:   "get <build-id>",
	Short: "Show one build with its component list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := apiClient().GetBuild(context.Background(), args[0])
		if err != nil {
			return err
		}
		if buildsFormat == "json" {
			return printJSON(b)
		}
		fmt.Printf("Name:   %s\n", b.Name)
		fmt.Printf("By:     %s\n", b.Username)
		if b.Description != "" {
			fmt.Printf("About:  %s\n", b.Description)
		}
		fmt.Printf("Total:  $%.2f\n\n", b.TotalPrice)

		slots := make([]string, 0, len(b.Components))
		for slot := range b.Components {
			slots = append(slots, slot)
		}
		sort.Strings(slots)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SLOT\tCOMPONENT\tPRICE")
		for _, slot := range slots {
			c := b.Components[slot]
			fmt.Fprintf(w, "%s\t%s\t$%.2f\n", slot, c.Name, c.Price)
		}
		return w.Flush()
	},
}

var buildAddPartCmd = &cobra.Command{
	Use:   "add-part <category> <name> <price>",
	Short: "Drop a component into your draft build (creates one if needed)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var price float64
		if _, err := fmt.Sscanf(args[2], "%f", &price); err != nil {
			return fmt.Errorf("invalid price %q: %w", args[2], err)
		}
		b, err := apiClient().AddComponentToDraft(context.Background(), client.Component{
			Category: args[0],
			Name:     args[1],
			Price:    price,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Draft %s now has %d part(s), total $%.2f\n", b.ID, len(b.Components), b.TotalPrice)
		return nil
	},
}

func init() {
	buildsCmd.PersistentFlags().StringVar(&buildsFormat, "format", "text", "Output format: text or json")
	buildsListCmd.Flags().IntVar(&buildsPage, "page", 1, "Page number")
	buildsListCmd.Flags().IntVar(&buildsLimit, "limit", 12, "Builds per page")
	buildsCmd.AddCommand(buildsListCmd)
	buildsCmd.AddCommand(buildsGetCmd)
	buildsCmd.AddCommand(buildAddPartCmd)
}

// ── cart ─────────────────────────────────────────────────────────────────────

var cartItemName string

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Manage your shopping cart",
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cart contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient().GetCart(context.Background())
		if err != nil {
			return err
		}
		printCart(c)
		return nil
	},
}

var cartAddCmd = &cobra.Command{
	Use:   "add <build-id>",
	Short: "Snapshot a build into the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient().AddBuildToCart(context.Background(), args[0], cartItemName)
		if err != nil {
			return err
		}
		printCart(c)
		return nil
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <build-id>",
	Short: "Remove a build from the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient().RemoveCartItem(context.Background(), args[0])
		if err != nil {
			return err
		}
		printCart(c)
		return nil
	},
}

func printCart(c *client.Cart) {
	if len(c.Items) == 0 {
		fmt.Println("Cart is empty.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BUILD\tNAME\tPARTS\tPRICE")
	var total float64
	for _, it := range c.Items {
		fmt.Fprintf(w, "%s\t%s\t%d\t$%.2f\n", it.BuildID, it.BuildName, len(it.Components), it.TotalPrice)
		total += it.TotalPrice
	}
	w.Flush() //nolint:errcheck
	fmt.Printf("\ntotal: $%.2f\n", total)
}

func init() {
	cartAddCmd.Flags().StringVar(&cartItemName, "name", "", "Override the snapshot name in the cart")
	cartCmd.AddCommand(cartShowCmd)
	cartCmd.AddCommand(cartAddCmd)
	cartCmd.AddCommand(cartRemoveCmd)
}

// ── checkout ─────────────────────────────────────────────────────────────────

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Start a checkout for the current cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := apiClient().CreateCheckoutSession(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Order:   %s\n", r.OrderID)
		fmt.Printf("Session: %s\n", r.SessionID)
		fmt.Printf("Pay at:  %s\n", r.URL)
		fmt.Printf("\nAfter paying, run: shopctl checkout complete %s\n", r.SessionID)
		return nil
	},
}

var checkoutCompleteCmd = &cobra.Command{
	Use:   "complete <session-id>",
	Short: "Mark a paid checkout session as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := apiClient().CompleteCheckout(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Order %s is %s ($%.2f). Cart cleared.\n", o.ID, o.Status, o.TotalAmount)
		return nil
	},
}

func init() {
	checkoutCmd.AddCommand(checkoutCompleteCmd)
}

// ── orders ───────────────────────────────────────────────────────────────────

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List and manage your orders",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your orders, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		orders, err := apiClient().ListOrders(context.Background())
		if err != nil {
			return err
		}
		if len(orders) == 0 {
			fmt.Println("No orders yet.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tITEMS\tTOTAL\tCREATED")
		for _, o := range orders {
			fmt.Fprintf(w, "%s\t%s\t%d\t$%.2f\t%s\n",
				o.ID, o.Status, len(o.Items), o.TotalAmount, o.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var ordersSetStatusCmd = &cobra.Command{
	Use:   "set-status <order-id> <status>",
	Short: "Move an order along its lifecycle (pending, checkout, completed, cancelled)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := apiClient().UpdateOrderStatus(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Order %s is now %s.\n", o.ID, o.Status)
		return nil
	},
}

func init() {
	ordersCmd.AddCommand(ordersListCmd)
	ordersCmd.AddCommand(ordersSetStatusCmd)
}

// ── questions ────────────────────────────────────────────────────────────────

var (
	questionsPage  int
	questionsLimit int
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Browse and post community questions",
}

var questionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List community questions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		qs, err := apiClient().ListQuestions(context.Background(), questionsPage, questionsLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tBY\tANSWERS\tQUESTION")
		for _, q := range qs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", q.ID, q.Username, q.AnswerCount, truncate(q.Content, 70))
		}
		return w.Flush()
	},
}

var questionsAskCmd = &cobra.Command{
	Use:   "ask <content>",
	Short: "Post a new question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := apiClient().AskQuestion(context.Background(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("Question %s posted.\n", q.ID)
		return nil
	},
}

func init() {
	questionsListCmd.Flags().IntVar(&questionsPage, "page", 1, "Page number")
	questionsListCmd.Flags().IntVar(&questionsLimit, "limit", 20, "Questions per page")
	questionsCmd.AddCommand(questionsListCmd)
	questionsCmd.AddCommand(questionsAskCmd)
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the shopctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shopctl %s\n", version)
	},
}

// ── helpers ──────────────────────────────────────────────────────────────────

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
