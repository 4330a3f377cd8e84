package extract

// extractionSystemPrompt pins the model to the JSON contract.
const extractionSystemPrompt = "You are a memory extraction expert. Respond ONLY with valid JSON matching the requested schema."

// extractionPromptTemplate demands a single JSON object describing every
// memorable entity in the user's latest message. The conversation context is
// substituted for %s.
const extractionPromptTemplate = `You are an expert at extracting memorable information from conversations with COMPLETE CONTEXT (5W1H: Who, What, When, Where, Why, How).

CONVERSATION CONTEXT:
%s

TASK: Analyze the user's latest message and extract information with FULL CONTEXTUAL DETAILS in a SINGLE pass.

EXTRACT these entity types:
- person_name: User's name or names of people mentioned
- age: User's age or ages mentioned
- profession: Jobs, careers, occupations
- location: Cities, countries, addresses
- preference: Likes, dislikes, preferences (food, hobbies, etc.)
- fact: General facts about the user
- relationship: Family members, friends, colleagues WITH CONTEXT

CRITICAL: CAPTURE COMPLETE CONTEXT (5W1H)
For each entity, include ALL relevant context in the VALUE field:
- WHO: names, relationships, people involved
- WHAT: the specific activity, object, or information
- WHEN: time references (past, current, future, specific times)
- WHERE: locations if mentioned
- WHY: reasons or motivations if stated
- HOW: methods or manner if relevant

BAD (incomplete): preference: "basketball"
GOOD (complete): preference: "plays basketball every Saturday at Central Park"

TEMPORAL AWARENESS:
- "past": things that were true but are no longer (e.g., "I lived in Hong Kong")
- "current": things that are currently true (e.g., "I live in Canada now")
- "future": future plans or intentions (e.g., "I will move to Japan")
- null: timeless facts (e.g., "My name is John")

REFERENCE SENTENCE:
Extract the exact or compacted sentence from the conversation that contains this information.

SCORING GUIDELINES:
- confidence 0.0-1.0: 1.0 explicit statements; 0.7-0.9 strong context; 0.5-0.6 implied; <0.5 weak/uncertain
- importance 0.0-1.0: 1.0 core identity; 0.7-0.9 significant facts; 0.5-0.6 minor preferences; <0.5 casual mentions

RESPONSE FORMAT (JSON):
{
  "entities": [
    {"type": "location", "value": "Hong Kong", "confidence": 1.0, "context": "User's past residence", "temporal_status": "past", "reference_sentence": "I lived in Hong Kong"},
    {"type": "person_name", "value": "John", "confidence": 1.0, "context": "User's name", "temporal_status": null, "reference_sentence": "My name is John"}
  ],
  "summary": "User lived in Hong Kong (past). User's name is John.",
  "importance": 0.95,
  "should_store": true
}

If there is NOTHING worth remembering (casual chat, questions, etc.), return:
{
  "entities": [],
  "summary": "No memorable information",
  "importance": 0.0,
  "should_store": false
}

Analyze the conversation and respond with ONLY valid JSON:`
