package controllers

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/atelier-logos/nabla/internal/pkg/blog"
)

// BlogController serves the markdown blog as HTML pages and a JSON feed.
type BlogController struct {
	loader *blog.Loader
}

func NewBlogController(loader *blog.Loader) *BlogController {
	return &BlogController{loader: loader}
}

// HandleIndex renders the post listing.
func (bc *BlogController) HandleIndex(c *fiber.Ctx) error {
	posts, err := bc.loader.LoadAll()
	if err != nil {
		fiberlog.Errorf("[Blog] load failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load posts")
	}
	return c.Render("blog/index", fiber.Map{
		"Title": "Blog",
		"Posts": posts,
	})
}

// HandlePost renders one post by slug.
func (bc *BlogController) HandlePost(c *fiber.Ctx) error {
	post, err := bc.loader.Get(c.Params("slug"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "not_found", "post not found")
	}
	return c.Render("blog/post", fiber.Map{
		"Title": post.Title,
		"Post":  post,
	})
}

// HandleFeed returns all posts as JSON for the marketing frontend.
func (bc *BlogController) HandleFeed(c *fiber.Ctx) error {
	posts, err := bc.loader.LoadAll()
	if err != nil {
		fiberlog.Errorf("[Blog] load failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load posts")
	}

	feed := make([]fiber.Map, 0, len(posts))
	for _, p := range posts {
		feed = append(feed, fiber.Map{
			"slug":        p.Slug,
			"title":       p.Title,
			"description": p.Description,
			"author":      p.Author,
			"date":        p.Date,
			"tags":        p.Tags,
		})
	}
	return c.JSON(fiber.Map{"posts": feed})
}
