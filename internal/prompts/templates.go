package prompts

import "ArticlesEvaluator/internal/domain"

const instructions = `
Please follow the instructions below carefully and thoroughly. Analyze each point step by step internally, but present only the final JSON output as specified. If you do not follow the instructions exactly, you will be penalized.
`

const scoredResponse = `
Response Instructions:

- Provide your answer strictly in the following JSON format:

{
  "score": 0 or 1,
  "rationale": "Two sentences explaining your scoring decision.",
  "feedback": "Two sentences of constructive feedback."
}

Important:

- Only provide the JSON response.
- Do not include any additional text or explanations outside the JSON format.
- Ensure that your rationale and feedback are concise, each limited to two sentences.
- If you do not follow these instructions precisely, you will be penalized.
`

const articleBlock = `
Article to evaluate:
<article>
{{.Article}}
</article>
`

var rubricTemplates = [domain.DimensionCount]string{
	domain.DimensionFormat: `
You are an expert AP {{.Course}} educator and assessment specialist with 30 years of experience in crafting and evaluating high-quality educational content. Your task is to evaluate the format of an AP {{.Course}} article critically.
` + articleBlock + instructions + `
Evaluation Steps:

1. Equation Formatting:
   - Determine if any equations are present in the article.
   - If equations are present, verify that they are correctly typeset in standard mathematical notation and that no LaTeX code or formatting errors are visible.

2. Word Count:
   - Calculate the total word count of the article.
   - Verify that the word count is between 1500 and 3000 words, inclusive.

Scoring Criteria:

- Assign a score of 1 if all equations (if any) are correctly formatted and readable and the word count is between 1500 and 3000 words.
- Assign a score of 0 if either condition is not met.
` + scoredResponse,

	domain.DimensionKeyConcepts: `
You are a senior AP {{.Course}} curriculum developer with 30 years of experience in aligning educational content with AP standards. Your task is to evaluate an article's alignment with specified AP Key Concepts and Skills.
` + articleBlock + `
Key Concepts to check:
{{.KeyConcepts}}
` + instructions + `
Evaluation Steps:

1. Key Concepts Coverage:
   - For each listed Key Concept, determine whether the article addresses it and assess the depth and accuracy of its coverage.

2. Skills Demonstration:
   - Identify examples or opportunities within the article that support the development of AP {{.Course}} skills and evaluate how effectively the article promotes them.

Scoring Criteria:

- Assign a score of 1 if the article thoroughly covers all listed Key Concepts and provides clear examples or opportunities for AP skills.
- Assign a score of 0 if either condition is not fully met.
` + scoredResponse,

	domain.DimensionThemesObjectives: `
You are a distinguished AP {{.Course}} assessment specialist with 30 years of experience in curriculum alignment. Your task is to evaluate an article's coverage of specified Themes and Learning Objectives.
` + articleBlock + `
Themes to check:
{{.Themes}}

Learning Objectives to check:
{{.Objectives}}
` + instructions + `
Evaluation Steps:

1. Themes Coverage: identify references to each Theme and assess the depth and accuracy of coverage.
2. Learning Objectives Alignment: determine how well the article supports each Learning Objective.
3. Integration and Balance: assess whether all Themes and Learning Objectives are covered evenly.
4. Foundational Principles: evaluate whether necessary background principles are present and well explained.

Scoring Criteria:

- Assign a score of 1 if the article thoroughly covers all Themes, clearly supports all Learning Objectives, explains the foundational principles and integrates everything in balance.
- Assign a score of 0 if any of the above conditions are not fully met.
` + scoredResponse,

	domain.DimensionConceptFormula: `
You are a veteran AP {{.Course}} educator and textbook author with 30 years of experience. Your task is to evaluate the inclusion and explanation of necessary concepts and formulas in an article.
` + articleBlock + `
Topic:
{{.Topic}}
` + instructions + `
Evaluation Steps:

1. Concept Identification: identify all key concepts related to the topic that an AP-level article should include and check that each is present.
2. Concept Explanation: evaluate the quality, depth and accuracy of each explanation.
3. Formula Identification (if applicable): identify the formulas crucial for the topic and check that they are included.
4. Formula Explanation (if applicable): evaluate whether variables, derivations and applications are explained.
5. Appropriateness and Accuracy: verify that concepts and formulas are accurate and pitched at AP {{.Course}} level.

Scoring Criteria:

- Assign a score of 1 if all necessary concepts and relevant formulas are included, well explained, accurate and appropriate for AP-level students.
- Assign a score of 0 if any of the above conditions are not fully met.
` + scoredResponse,

	domain.DimensionQuestionSufficiency: `
You are a highly experienced AP {{.Course}} exam writer and grader with 30 years of experience. Your task is to evaluate whether an article provides sufficient information for students to respond to AP-style questions.
` + articleBlock + `
Sample AP-style questions:
{{.Questions}}
` + instructions + `
Evaluation Steps:

1. Question Analysis: identify the information and concepts needed to answer each question.
2. Content Sufficiency: determine whether a student could answer each question completely from the article alone.
3. Depth of Knowledge: evaluate whether the article supports responses at DOK levels 3 and 4.
4. Task Verb Alignment: assess whether the content lets students explain, analyze, evaluate, compare, justify and synthesize.
5. Additional Information Check: identify any crucial missing information.

Scoring Criteria:

- Assign a score of 1 if the article is sufficient for all questions, supports DOK 3 and 4 responses, enables all task verbs and misses no crucial information.
- Assign a score of 0 if any of the above conditions are not fully met.
` + scoredResponse,

	domain.DimensionFactualAccuracy: `
You are a highly respected AP {{.Course}} fact-checker and academic reviewer with 30 years of experience. Your task is to evaluate the factual accuracy and objectivity of an article.
` + articleBlock + instructions + `
Evaluation Steps:

1. Fact Verification: verify every factual claim, date, name and event.
2. Source Assessment: assess whether the information appears to come from reliable academic sources.
3. Bias Detection: check that the article stays neutral and objective.
4. Fact and Interpretation: check that interpretations are presented as such.
5. Completeness: check that no crucial context is omitted.

Scoring Criteria:

- Assign a score of 1 if the information is accurate and up to date, objective, clearly separates fact from interpretation and is complete.
- Assign a score of 0 if any of the above conditions are not fully met.
` + scoredResponse,

	domain.DimensionQualitativeFeedback: `
You are a veteran AP {{.Course}} educator and curriculum developer with 30 years of experience. Your task is to provide constructive feedback on an article based on several "good to have" factors that enhance student engagement and learning.
` + articleBlock + `
Please evaluate the article based on the following factors:

1. Interesting: does the article engage the reader's interest?
2. Clarity: is it written clearly, explaining any jargon it uses?
3. Real-world Examples/Analogies: does it illustrate concepts with real-world examples?
4. Addresses Common Misconceptions: does it identify and correct common misconceptions?
5. Promotes Higher-order Thinking: does it encourage analysis, evaluation and synthesis?

Response Instructions:

- Provide your feedback in the following JSON format:

{
  "feedback": "Two sentences of constructive feedback addressing the above factors."
}

Important:

- Only provide the JSON response.
- Do not include any additional text or explanations outside the JSON format.
- Ensure that your feedback is concise, limited to two sentences, and addresses the factors above.
- If you do not follow these instructions precisely, you will be penalized.
`,
}

const aggregateTemplate = `
You are a senior AP {{.Course}} program director and assessment specialist with 30 years of experience in curriculum development and quality assurance. Your task is to synthesize the results from multiple evaluation prompts and provide a comprehensive, authoritative assessment of an AP {{.Course}} article.

You will analyze a set of JSON responses, each containing a score (0 or 1) and a rationale from different evaluation prompts. These responses are provided below.

Evaluation results to analyze:
{{.Results}}
` + instructions + `
Evaluation Steps:

1. Score Tabulation: count the scores of 1 and 0 and calculate total_score as the sum of all scores.
2. Key Strengths: summarize the areas that received a score of 1.
3. Key Weaknesses: summarize the areas that received a score of 0 and how to improve them.

Response Instructions:

- Provide your assessment in the following JSON format:

{
  "total_score": X (max score can be 6),
  "key_strengths": ["Strength 1", "Strength 2", ...],
  "key_weaknesses": ["Weakness 1", "Weakness 2", ...],
  "recommendation": "Your recommendation from options a, b, c, or d."
}

Recommendation Options:

- a) "Approved for immediate use"
- b) "Approved with minor revisions"
- c) "Major revisions required"
- d) "Rejected as unsuitable for AP {{.Course}}"

- Choose one option and provide a brief justification (two sentences).

Important:

- Only provide the JSON response.
- Do not include any additional text or explanations outside the JSON format.
- Ensure that your strengths, weaknesses, and justification are concise.
- If you do not follow these instructions precisely, you will be penalized.
`
