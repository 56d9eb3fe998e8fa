package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "seed":
		seedCmd(apiURL, args)
	case "check":
		checkCmd(apiURL, args)
	case "hash-password":
		hashPasswordCmd(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`blogctl - Development tool for the blog backend

USAGE:
  blogctl <command> [options]

COMMANDS:
  seed           Create sample articles through the admin API
  check          Explain whether an article shows up for readers
  hash-password  Print a bcrypt hash for ADMIN_PASSWORD_HASH
  help           Show this help message

ENVIRONMENT:
  API_URL         Backend API URL (default: http://localhost:8080)
  ADMIN_USERNAME  Admin username used by seed and check
  ADMIN_PASSWORD  Admin password used by seed and check

EXAMPLES:
  # Create 5 published articles and 2 drafts
  blogctl seed --count=5 --drafts=2

  # Why is my article not on the homepage?
  blogctl check --article=my-first-post

  # Generate a password hash (reads the password from stdin)
  echo -n 'secret' | blogctl hash-password`)
}

func login(client *APIClient) {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		fmt.Println("Error: ADMIN_USERNAME and ADMIN_PASSWORD must be set")
		os.Exit(1)
	}

	fmt.Print("Logging in... ")
	result, err := client.Login(username, password)
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK (as %s, session until %s)\n", result.User.Name, result.ExpiresAt.Local().Format(time.RFC1123))
}

func seedCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	count := fs.Int("count", 5, "Number of published articles to create")
	drafts := fs.Int("drafts", 0, "Number of draft articles to create")
	title := fs.String("title", "Sample Article", "Title shared by every created article")
	fs.Parse(args)

	if *count < 0 || *drafts < 0 || *count+*drafts == 0 {
		fmt.Println("Error: nothing to create")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)
	login(client)

	fmt.Println()
	total := *count + *drafts
	for i := 0; i < total; i++ {
		published := i < *count
		// Spread published dates out so listings have a stable order
		date := time.Now().Add(-time.Duration(total-i) * time.Hour)
		content := fmt.Sprintf("## Part %d\n\nGenerated by blogctl at %s.", i+1, time.Now().Format(time.RFC3339))

		article, err := client.CreateArticle(*title, content, published, &date)
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED: %v\n", i+1, total, err)
			os.Exit(1)
		}

		state := "published"
		if !published {
			state = "draft"
		}
		fmt.Printf("  [%d/%d] %s (%s)\n", i+1, total, article.Slug, state)
	}
}

func checkCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	idOrSlug := fs.String("article", "", "Article id or slug")
	homepage := fs.Int("homepage", 5, "Number of articles the homepage shows")
	fs.Parse(args)

	if *idOrSlug == "" {
		fmt.Println("Error: --article is required")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)
	login(client)

	article, err := client.GetArticle(*idOrSlug)
	if err != nil {
		fmt.Printf("Article not found: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Title:          ", article.Title)
	fmt.Println("Slug:           ", article.Slug)
	fmt.Println("Is Published:   ", article.IsPublished)
	fmt.Println("Published Date: ", article.PublishedDate.Local().Format(time.RFC1123))
	fmt.Println("Created At:     ", article.CreatedAt.Local().Format(time.RFC1123))
	fmt.Println("Updated At:     ", article.UpdatedAt.Local().Format(time.RFC1123))
	fmt.Println()

	if !article.IsPublished {
		fmt.Println("NOT VISIBLE: the article is a draft.")
		fmt.Printf("  Publish it with PUT /api/v1/admin/articles/%s {\"isPublished\": true}\n", article.Slug)
		return
	}

	list, err := client.ListPublished(*homepage)
	if err != nil {
		fmt.Printf("Failed to list articles: %v\n", err)
		os.Exit(1)
	}
	for _, a := range list.Articles {
		if a.ID == article.ID {
			fmt.Println("VISIBLE: the article is on the first page of the public listing.")
			return
		}
	}

	fmt.Printf("PUBLISHED but not on the homepage: newer articles fill all %d slots (%d published in total).\n",
		*homepage, list.Pagination.Total)
}

func hashPasswordCmd(args []string) {
	fs := flag.NewFlagSet("hash-password", flag.ExitOnError)
	cost := fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	fs.Parse(args)

	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil && password == "" {
		fmt.Fprintln(os.Stderr, "Error: no password on stdin")
		os.Exit(1)
	}
	password = strings.TrimRight(password, "\r\n")

	hash, err := bcrypt.GenerateFromPassword([]byte(password), *cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(hash))
}
