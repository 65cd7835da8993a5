package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"shopfront/internal/config"
	"shopfront/internal/logging"
	"shopfront/internal/store"
	"shopfront/models"
	"shopfront/services/api"
	"shopfront/services/auth"
	"shopfront/services/cart"
	"shopfront/services/catalog"
	"shopfront/utils"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	session *auth.Service
	cart    *cart.Service
	catalog *catalog.Client
	stdin   *bufio.Reader
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "help" {
		usage()
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFile)

	creds, err := store.NewCredentialStore(afero.NewOsFs(), cfg.StorageDir)
	if err != nil {
		return err
	}

	client := api.NewClient(cfg.APIBaseURL, creds, logger)
	client.SetMode(api.ParseMode(cfg.Mode))
	client.OnHardReset(func() {
		fmt.Fprintln(os.Stderr, "Session expired; please sign in again.")
		os.Exit(1)
	})

	session := auth.NewService(client, creds, logger)
	session.SetVerifyOnRestore(cfg.Strict())
	cartSvc := cart.NewService(client, session, logger)
	session.Subscribe(cartSvc.HandleAuthChange)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		session: session,
		cart:    cartSvc,
		catalog: catalog.NewClient(client),
		stdin:   bufio.NewReader(os.Stdin),
	}

	ctx := context.Background()
	if err := a.waitForAPI(ctx); err != nil {
		return fmt.Errorf("storefront API unreachable at %s: %w", cfg.APIBaseURL, err)
	}
	if err := a.session.Restore(ctx); err != nil {
		return err
	}

	return a.dispatch(ctx, args[0], args[1:])
}

// waitForAPI probes the API with a few spaced attempts so a freshly started
// local stack has time to come up. Any HTTP response counts as reachable.
func (a *app) waitForAPI(ctx context.Context) error {
	probe := &http.Client{Timeout: 5 * time.Second}
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.APIBaseURL+"/products/featured", nil)
			if err != nil {
				return err
			}
			resp, err := probe.Do(req)
			if err != nil {
				return err
			}
			resp.Body.Close()
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "signup":
		return a.cmdSignup(ctx, args)
	case "login":
		return a.cmdLogin(ctx, args)
	case "resend":
		return a.cmdResend(ctx, args)
	case "logout":
		a.session.SignOut(ctx)
		fmt.Println("Signed out.")
		return nil
	case "whoami":
		return a.cmdWhoami()
	case "refresh":
		return a.session.RefreshAccessToken(ctx)
	case "profile":
		return a.cmdProfile(ctx, args)
	case "deactivate":
		return a.cmdDeactivate(ctx)
	case "products":
		return a.cmdProducts(ctx, args)
	case "product":
		return a.cmdProduct(ctx, args)
	case "featured":
		return a.cmdFeatured(ctx)
	case "home":
		return a.cmdHome(ctx)
	case "cart":
		return a.cmdCart(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := a.stdin.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *app) cmdSignup(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: shopfront signup <email>")
	}
	email := args[0]
	if err := a.session.RequestSignupCode(ctx, email); err != nil {
		return err
	}
	code, err := a.prompt(fmt.Sprintf("Enter the 6-digit code sent to %s: ", email))
	if err != nil {
		return err
	}
	if err := a.session.VerifySignupCode(ctx, email, code); err != nil {
		return err
	}
	fmt.Printf("Welcome, %s!\n", email)
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: shopfront login <email>")
	}
	email := args[0]
	if err := a.session.RequestLoginCode(ctx, email); err != nil {
		return err
	}
	code, err := a.prompt(fmt.Sprintf("Enter the 6-digit code sent to %s: ", email))
	if err != nil {
		return err
	}
	if err := a.session.VerifyLoginCode(ctx, email, code); err != nil {
		return err
	}
	fmt.Printf("Signed in as %s.\n", email)
	return nil
}

func (a *app) cmdResend(ctx context.Context, args []string) error {
	if len(args) != 2 || (args[0] != "signup" && args[0] != "login") {
		return fmt.Errorf("usage: shopfront resend <signup|login> <email>")
	}
	if err := a.session.ResendCode(ctx, args[1], auth.Flow(args[0])); err != nil {
		return err
	}
	fmt.Println("Code resent.")
	return nil
}

func (a *app) cmdWhoami() error {
	user := a.session.User()
	if user == nil {
		fmt.Println("Not signed in.")
		return nil
	}
	name := user.FullName
	if name == "" {
		name = user.Email
	}
	fmt.Printf("%s (%s)\n", name, user.Email)
	return nil
}

func (a *app) cmdProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	avatar := fs.String("avatar", "", "path to an avatar image to upload")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fields := map[string]string{}
	for _, arg := range fs.Args() {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("profile fields are key=value pairs, got %q", arg)
		}
		fields[key] = value
	}

	if len(fields) == 0 && *avatar == "" {
		user, err := a.session.Profile(ctx)
		if err != nil {
			return err
		}
		printUser(user)
		return nil
	}

	if *avatar != "" {
		if err := a.session.UpdateProfileWithAvatar(ctx, fields, *avatar); err != nil {
			return err
		}
	} else {
		update := make(map[string]any, len(fields))
		for k, v := range fields {
			update[k] = v
		}
		if err := a.session.UpdateProfile(ctx, update); err != nil {
			return err
		}
	}
	fmt.Println("Profile updated.")
	return nil
}

func (a *app) cmdDeactivate(ctx context.Context) error {
	answer, err := a.prompt("This permanently deactivates your account. Type 'yes' to continue: ")
	if err != nil {
		return err
	}
	if answer != "yes" {
		fmt.Println("Aborted.")
		return nil
	}
	if err := a.session.Deactivate(ctx); err != nil {
		return err
	}
	fmt.Println("Account deactivated.")
	return nil
}

func (a *app) cmdProducts(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	search := fs.String("search", "", "full-text search query")
	category := fs.String("category", "", "filter by category")
	brand := fs.String("brand", "", "filter by brand")
	minPrice := fs.Float64("min", 0, "minimum price")
	maxPrice := fs.Float64("max", 0, "maximum price")
	page := fs.Int("page", 0, "page number")
	limit := fs.Int("limit", 0, "page size")
	sortBy := fs.String("sort", "", "sort field: price, rating, createdAt, title")
	order := fs.String("order", "", "sort order: asc or desc")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filters := models.ProductFilters{
		Brand:     *brand,
		MinPrice:  *minPrice,
		MaxPrice:  *maxPrice,
		Page:      *page,
		Limit:     *limit,
		SortBy:    *sortBy,
		SortOrder: *order,
	}

	var (
		products []models.Product
		meta     *models.Pagination
		err      error
	)
	switch {
	case *search != "":
		filters.Category = *category
		products, meta, err = a.catalog.Search(ctx, *search, filters)
	case *category != "":
		products, meta, err = a.catalog.ByCategory(ctx, *category, filters)
	default:
		filters.Category = *category
		products, meta, err = a.catalog.List(ctx, filters)
	}
	if err != nil {
		return err
	}

	printProducts(products)
	if meta != nil {
		fmt.Printf("page %d of %d (%d items)\n", meta.CurrentPage, meta.TotalPages, meta.TotalItems)
	}
	return nil
}

func (a *app) cmdProduct(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: shopfront product <id>")
	}
	product, err := a.catalog.Get(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s\n%s\n%s", product.Title, utils.FormatPrice(product.Price), product.Description)
	fmt.Println()
	fmt.Println("image:", utils.ImageURL(*product))
	return nil
}

func (a *app) cmdFeatured(ctx context.Context) error {
	products, err := a.catalog.Featured(ctx)
	if err != nil {
		return err
	}
	printProducts(products)
	return nil
}

// cmdHome renders the landing view: featured products and the cart badge,
// fetched concurrently.
func (a *app) cmdHome(ctx context.Context) error {
	var featured []models.Product

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		featured, err = a.catalog.Featured(ctx)
		return err
	})
	p.Go(func(ctx context.Context) error {
		a.cart.FetchCount(ctx)
		return nil
	})
	if err := p.Wait(); err != nil {
		return err
	}

	if a.session.IsAuthenticated() {
		fmt.Printf("Cart: %d item(s)\n\n", a.cart.Count())
	}
	fmt.Println("Featured:")
	printProducts(featured)
	return nil
}

func (a *app) cmdCart(ctx context.Context, args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}

	switch sub {
	case "show":
		if err := a.cart.Fetch(ctx); err != nil {
			return err
		}
		printCart(a.cart.Cart())
		return nil
	case "add":
		if len(args) < 1 {
			return fmt.Errorf("usage: shopfront cart add <productId> [quantity]")
		}
		quantity := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be a number: %w", err)
			}
			quantity = n
		}
		if err := a.cart.Add(ctx, args[0], quantity); err != nil {
			return err
		}
		printCart(a.cart.Cart())
		return nil
	case "update":
		if len(args) != 2 {
			return fmt.Errorf("usage: shopfront cart update <productId> <quantity>")
		}
		quantity, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("quantity must be a number: %w", err)
		}
		if err := a.cart.UpdateQuantity(ctx, args[0], quantity); err != nil {
			return err
		}
		printCart(a.cart.Cart())
		return nil
	case "remove":
		if len(args) != 1 {
			return fmt.Errorf("usage: shopfront cart remove <productId>")
		}
		if err := a.cart.Remove(ctx, args[0]); err != nil {
			return err
		}
		printCart(a.cart.Cart())
		return nil
	case "clear":
		if err := a.cart.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("Cart cleared.")
		return nil
	case "validate":
		if err := a.cart.Validate(ctx); err != nil {
			return err
		}
		printCart(a.cart.Cart())
		return nil
	case "count":
		a.cart.FetchCount(ctx)
		fmt.Println(a.cart.Count())
		return nil
	default:
		return fmt.Errorf("unknown cart subcommand %q", sub)
	}
}

func printUser(user *models.User) {
	fmt.Println("email:", user.Email)
	if user.FullName != "" {
		fmt.Println("name: ", user.FullName)
	}
	if p := user.Profile; p != nil {
		if p.PhoneNumber != "" {
			fmt.Println("phone:", p.PhoneNumber)
		}
		if p.Address != "" {
			fmt.Println("addr: ", p.Address)
		}
		if p.Avatar != "" {
			fmt.Println("avatar:", p.Avatar)
		}
	}
}

func printProducts(products []models.Product) {
	if len(products) == 0 {
		fmt.Println("no products found")
		return
	}
	for _, p := range products {
		line := fmt.Sprintf("%-24s  %10s  %s", p.ID, utils.FormatPrice(p.Price), p.Title)
		if badge := utils.ProductBadge(p); badge != "" {
			line += "  [" + badge + "]"
		}
		fmt.Println(line)
	}
}

func printCart(c *models.Cart) {
	if c == nil || len(c.Items) == 0 {
		fmt.Println("cart is empty")
		return
	}
	for _, item := range c.Items {
		fmt.Printf("%dx %-32s %s\n", item.Quantity, item.Product.Title, utils.FormatPrice(item.Price))
	}
	fmt.Printf("%d item(s), total %s\n", c.TotalItems, utils.FormatPrice(c.TotalAmount))
}

func usage() {
	fmt.Println(`shopfront - storefront client

Usage:
  shopfront signup <email>             create an account with an emailed code
  shopfront login <email>              sign in with an emailed code
  shopfront resend <signup|login> <email>
  shopfront logout
  shopfront whoami
  shopfront refresh                    mint a new access token
  shopfront profile [key=value ...] [-avatar <path>]
  shopfront deactivate
  shopfront products [-search q] [-category c] [-brand b] [-min n] [-max n]
                     [-page n] [-limit n] [-sort f] [-order asc|desc]
  shopfront product <id>
  shopfront featured
  shopfront home
  shopfront cart [show|add|update|remove|clear|validate|count] ...

Environment:
  SHOPFRONT_API_URL      API base URL (default http://localhost:5000/api)
  SHOPFRONT_MODE         strict or relaxed (default strict)
  SHOPFRONT_STORAGE_DIR  session storage directory
  SHOPFRONT_LOG_LEVEL    debug, info, warn, error
  SHOPFRONT_LOG_FILE     rotated log file instead of stdout`)
}
