package library

// AddBookArgs is an argument struct for the add_book tool. The book
// fields sit at the top level of the arguments object.
type AddBookArgs struct {
	Book
}

// RemoveBookArgs is an argument struct for the remove_book tool.
type RemoveBookArgs struct {
	ISBN string `json:"isbn"`
}

// UpdateBookArgs is an argument struct for the update_book tool. Every
// field besides the ISBN is optional, and absent fields are left alone.
type UpdateBookArgs struct {
	ISBN string `json:"isbn"`
	UpdateBook
}

// SearchBooksArgs is an argument struct for the search_books tool.
type SearchBooksArgs struct {
	Query      string `json:"query"`
	Author     string `json:"author"`
	Tag        string `json:"tag"`
	Genre      string `json:"genre"`
	SearchType string `json:"search_type"`
	Limit      int    `json:"limit"`
}

// GetStatisticsArgs is an argument struct for the get_statistics tool.
type GetStatisticsArgs struct {
	GroupBy string `json:"group_by"`
}

// GetRecommendationsArgs is an argument struct for the
// get_recommendations tool.
type GetRecommendationsArgs struct {
	BasedOnISBN     string   `json:"based_on_isbn"`
	PreferredGenres []string `json:"preferred_genres"`
	MinRating       float64  `json:"min_rating"`
	MaxResults      int      `json:"max_results"`
}

var addBookSchema = []byte(`
  {
    "type": "object",
    "properties": {
      "title": {
        "description": "The title of the book",
        "type": "string"
      },
      "author": {
        "description": "The author of the book",
        "type": "string"
      },
      "isbn": {
        "description": "The ISBN of the book",
        "type": "string"
      },
      "tags": {
        "description": "Tags associated with the book",
        "type": "array",
        "items": {
          "type": "string"
        }
      },
      "genre": {
        "description": "The genre of the book",
        "type": "string"
      },
      "year_published": {
        "description": "The year the book was published",
        "type": "integer"
      },
      "rating": {
        "description": "The rating of the book, from 1 to 5",
        "type": "number",
        "minimum": 1,
        "maximum": 5
      },
      "description": {
        "description": "A description of the book",
        "type": "string"
      },
      "pages": {
        "description": "The number of pages in the book",
        "type": "integer",
        "minimum": 1
      },
      "language": {
        "description": "The language of the book",
        "type": "string"
      }
    },
    "required": ["title", "author", "isbn"]
  }
`)

var removeBookSchema = []byte(`
  {
    "type": "object",
    "properties": {
      "isbn": {
        "description": "The ISBN of the book",
        "type": "string"
      }
    },
    "required": ["isbn"]
  }
`)

var updateBookSchema = []byte(`
  {
    "type": "object",
    "properties": {
      "isbn": {
        "description": "The ISBN of the book to update",
        "type": "string"
      },
      "title": {
        "description": "The title of the book",
        "type": "string"
      },
      "author": {
        "description": "The author of the book",
        "type": "string"
      },
      "tags": {
        "description": "Tags associated with the book",
        "type": "array",
        "items": {
          "type": "string"
        }
      },
      "genre": {
        "description": "The genre of the book",
        "type": "string"
      },
      "year_published": {
        "description": "The year the book was published",
        "type": "integer"
      },
      "rating": {
        "description": "The rating of the book, from 1 to 5",
        "type": "number",
        "minimum": 1,
        "maximum": 5
      },
      "description": {
        "description": "A description of the book",
        "type": "string"
      },
      "pages": {
        "description": "The number of pages in the book",
        "type": "integer",
        "minimum": 1
      },
      "language": {
        "description": "The language of the book",
        "type": "string"
      }
    },
    "required": ["isbn"]
  }
`)

var getNumBooksSchema = []byte(`
  {
    "type": "object",
    "properties": {}
  }
`)

var searchBooksSchema = []byte(`
  {
    "type": "object",
    "properties": {
      "query": {
        "description": "Text matched against titles and authors",
        "type": "string"
      },
      "author": {
        "description": "Author name filter",
        "type": "string"
      },
      "tag": {
        "description": "Tag filter",
        "type": "string"
      },
      "genre": {
        "description": "Genre filter, matched exactly",
        "type": "string"
      },
      "search_type": {
        "description": "Field the query is matched against",
        "type": "string",
        "enum": ["all", "title", "author", "genre", "tag"]
      },
      "limit": {
        "description": "Maximum number of results",
        "type": "integer",
        "minimum": 1,
        "maximum": 100,
        "default": 10
      }
    }
  }
`)

var getStatisticsSchema = []byte(`
  {
    "type": "object",
    "properties": {
      "group_by": {
        "description": "Field the breakdown is grouped by",
        "type": "string",
        "enum": ["genre", "author", "language", "rating", "tags"],
        "default": "genre"
      }
    }
  }
`)

var getRecommendationsSchema = []byte(`
  {
    "type": "object",
    "properties": {
      "based_on_isbn": {
        "description": "ISBN of a book to find similar books for",
        "type": "string"
      },
      "preferred_genres": {
        "description": "Genres the reader prefers",
        "type": "array",
        "items": {
          "type": "string"
        }
      },
      "min_rating": {
        "description": "Minimum rating a book should carry",
        "type": "number",
        "minimum": 1,
        "maximum": 5
      },
      "max_results": {
        "description": "Maximum number of recommendations",
        "type": "integer",
        "minimum": 1,
        "default": 5
      }
    }
  }
`)
