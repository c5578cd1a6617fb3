package pipeline

import "github.com/sells-group/brand-scorecard/internal/llm"

const relevanceSystemPrompt = `You judge whether a web search result is about a specific brand. Decide if the page is the brand's own official website and whether it is relevant to the brand at all. Score your confidence from 0 to 100. Record the signals you relied on as booleans, for example domainMatch, titleMatch, contentMatch, officialLanguage, thirdParty.`

const relevanceUserPrompt = `Brand: %s
Additional context: %s

Search result
Title: %s
URL: %s
Content:
%s`

const threadSystemPrompt = `You judge whether a Reddit thread contains genuine discussion of a specific brand: opinions, experiences, comparisons or recommendations. Passing mentions and unrelated threads are not relevant. Score your confidence from 0 to 100.`

const threadUserPrompt = `Brand: %s
Additional context: %s

Thread
Title: %s
Subreddit: %s
URL: %s
Content:
%s`

const extractionSystemPrompt = `You write brand profiles from the brand's own web pages. Use only facts stated in the provided sources. Give 3 to 7 topics the brand is associated with and 1 to 5 broad categories it belongs to. Rate your confidence in each field as high, medium or low, and note anything unclear in extractionNotes.`

const extractionUserPrompt = `Brand: %s
Additional context: %s

Sources:
%s`

const summarizeSystemPrompt = `You condense web pages into short factual notes about a company's size. Keep employee counts, funding rounds, revenue, valuation, customers, locations and public listing status. Drop everything else. Reply with plain text of at most 120 words.`

const summarizeUserPrompt = `Company: %s
Page: %s

%s`

const sizingSystemPrompt = `You classify companies into exactly one size tier:
- Startup: under 50 employees or pre-Series A
- Growth: 50 to 500 employees, Series A to C, or up to $100M revenue
- Mid-Market: 500 to 5,000 employees or $100M to $1B revenue
- Large Enterprise: over 5,000 employees or over $1B revenue, often publicly traded
- Unicorn: private and valued at $1B or more
Report the indicators you used, the source URLs, a confidence of high, medium or low, and your reasoning.`

const sizingUserPrompt = `Company: %s
Additional context: %s

Evidence:
%s`

const researchPrompt = `How large is the company %s (%s)? Give employee count, total funding, latest valuation, annual revenue and whether it is publicly traded. Answer with facts only.`

const competitorSystemPrompt = `You identify the brands that compete with a given brand, based only on Reddit discussions. Count how many of the threads mention each competitor. Reply with JSON only, in this shape: {"competitors": [{"name": "Brand", "mentions": 3, "context": "short quote"}]}. Do not include the brand itself, retailers, or generic product words.`

const competitorUserPrompt = `Brand: %s

Threads:
%s`

const sentimentSystemPrompt = `You label every opinion about a brand found in Reddit threads as POSITIVE or NEGATIVE. Use only these two labels. Skip neutral or factual mentions entirely. Quote the mention briefly and give a one-line reason.`

const sentimentUserPrompt = `Brand: %s

Threads:
%s`

var relevanceSchema = llm.MustSchema("relevance", `{
  "type": "object",
  "required": ["isOfficialSite", "isRelevant", "confidenceScore", "reasoning"],
  "properties": {
    "isOfficialSite": {"type": "boolean"},
    "isRelevant": {"type": "boolean"},
    "confidenceScore": {"type": "number"},
    "signals": {"type": "object", "additionalProperties": {"type": "boolean"}},
    "reasoning": {"type": "string"},
    "brandMatch": {"type": "boolean"}
  }
}`)

var threadSchema = llm.MustSchema("thread_relevance", `{
  "type": "object",
  "required": ["isRelevant", "confidenceScore", "reasoning"],
  "properties": {
    "isRelevant": {"type": "boolean"},
    "confidenceScore": {"type": "number"},
    "signals": {"type": "object", "additionalProperties": {"type": "boolean"}},
    "reasoning": {"type": "string"}
  }
}`)

var extractionSchema = llm.MustSchema("brand_profile", `{
  "type": "object",
  "required": ["description", "topics", "categories", "confidence"],
  "properties": {
    "description": {"type": "string", "minLength": 1},
    "topics": {"type": "array", "minItems": 3, "maxItems": 7, "items": {"type": "string", "minLength": 1}},
    "categories": {"type": "array", "minItems": 1, "maxItems": 5, "items": {"type": "string", "minLength": 1}},
    "additionalContext": {"type": "string"},
    "confidence": {
      "type": "object",
      "required": ["description", "topics", "categories", "additionalContext"],
      "properties": {
        "description": {"enum": ["high", "medium", "low"]},
        "topics": {"enum": ["high", "medium", "low"]},
        "categories": {"enum": ["high", "medium", "low"]},
        "additionalContext": {"enum": ["high", "medium", "low"]}
      }
    },
    "extractionNotes": {"type": "string"}
  }
}`)

var sizingSchema = llm.MustSchema("company_size", `{
  "type": "object",
  "required": ["companySize", "confidence", "reasoning"],
  "properties": {
    "companySize": {"enum": ["Startup", "Growth", "Mid-Market", "Large Enterprise", "Unicorn"]},
    "confidence": {"enum": ["high", "medium", "low"]},
    "keyIndicators": {
      "type": "object",
      "properties": {
        "employeeCount": {"type": ["string", "null"]},
        "funding": {"type": ["string", "null"]},
        "revenue": {"type": ["string", "null"]},
        "valuation": {"type": ["string", "null"]},
        "publicStatus": {"type": ["string", "null"]}
      }
    },
    "sources": {"type": "array", "items": {"type": "string"}},
    "reasoning": {"type": "string"}
  }
}`)

var sentimentSchema = llm.MustSchema("sentiment", `{
  "type": "object",
  "required": ["mentions"],
  "properties": {
    "mentions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["text", "sentiment"],
        "properties": {
          "text": {"type": "string"},
          "sentiment": {"type": "string"},
          "reason": {"type": "string"}
        }
      }
    }
  }
}`)
